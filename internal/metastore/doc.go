// Package metastore's four back-ends are chosen at build time via the
// facade's store construction, just as the original selects META_STORE at
// compile time with a #define. CachedStore is the default; LinearStore,
// OrderedStore, and UnorderedStore exist for comparison and for workloads
// where the default's fixed-bin-plus-fallback shape isn't a good fit.
package metastore

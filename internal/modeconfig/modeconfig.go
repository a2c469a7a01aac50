// Package modeconfig parses this module's environment-variable contract
// the way tools/ModeReader.h does: an explicit allow-list of recognized
// names, strict "0"/"1" parsing for the disable-switches, and a startup
// error (not a silent ignore) the moment an unrecognized SHADOWHEAP_-prefixed
// variable is seen.
//
// No retrieved example wires an env-config library for this shape of
// problem (a small, fixed, prefix-scoped set of booleans and one integer,
// validated against an allow-list rather than bound to a struct), so this
// is hand-rolled against os.Getenv/os.Environ rather than pulled from
// envconfig/viper/caarlos0-env. See DESIGN.md for the full justification.
package modeconfig

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Prefix is the required prefix for every variable this module reads.
const Prefix = "SHADOWHEAP_"

// Known variable name suffixes, one per checkable subsystem.
const (
	DisablePtrChecks = "DISABLE_PTRCHECKS"
	DisableUsbChecks = "DISABLE_USBCHECKS"
	DisableTopChecks = "DISABLE_TOPCHECKS"
	DisableTcaChecks = "DISABLE_TCACHECKS"
	DisableLeak      = "DISABLE_LEAKCHECKS"
	SizeInitial      = "SIZE_INITIAL"
)

var knownSuffixes = map[string]bool{
	DisablePtrChecks: true,
	DisableUsbChecks: true,
	DisableTopChecks: true,
	DisableTcaChecks: true,
	DisableLeak:      true,
	SizeInitial:      true,
}

// Config is the resolved set of switches this module runs with, read once
// at facade Init.
type Config struct {
	DisablePointerChecks bool
	DisableUnsortedBin   bool
	DisableTopChecks     bool
	DisableTcacheChecks  bool
	DisableLeakChecks    bool
	InitialCapacity      uint64
}

// DefaultInitialCapacity is used when SHADOWHEAP_SIZE_INITIAL is unset.
const DefaultInitialCapacity = 4096

// Load scans environ (in the form os.Environ() returns), validates every SHADOWHEAP_-prefixed name
// against the allow-list, parses each recognized value, and returns the
// resolved Config. The first unrecognized SHADOWHEAP_-prefixed name, or the
// first malformed value, is a fatal configuration error — this matches
// tools/ModeReader.h's is_allowed_env_var behavior of refusing to start
// rather than silently ignoring a typo'd switch.
func Load(environ []string) (Config, error) {
	cfg := Config{InitialCapacity: DefaultInitialCapacity}

	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, Prefix) {
			continue
		}
		suffix := strings.TrimPrefix(name, Prefix)
		if !knownSuffixes[suffix] {
			return Config{}, errors.Newf("modeconfig: unrecognized environment variable %q", name)
		}

		switch suffix {
		case DisablePtrChecks:
			b, err := parseDisableSwitch(name, value)
			if err != nil {
				return Config{}, err
			}
			cfg.DisablePointerChecks = b
		case DisableUsbChecks:
			b, err := parseDisableSwitch(name, value)
			if err != nil {
				return Config{}, err
			}
			cfg.DisableUnsortedBin = b
		case DisableTopChecks:
			b, err := parseDisableSwitch(name, value)
			if err != nil {
				return Config{}, err
			}
			cfg.DisableTopChecks = b
		case DisableTcaChecks:
			b, err := parseDisableSwitch(name, value)
			if err != nil {
				return Config{}, err
			}
			cfg.DisableTcacheChecks = b
		case DisableLeak:
			b, err := parseDisableSwitch(name, value)
			if err != nil {
				return Config{}, err
			}
			cfg.DisableLeakChecks = b
		case SizeInitial:
			n, err := parseSize(name, value)
			if err != nil {
				return Config{}, err
			}
			cfg.InitialCapacity = n
		}
	}

	return cfg, nil
}

// parseDisableSwitch implements the contract from spec.md §6: "0" means
// enabled (the check runs), "1" means disabled, an empty value is treated
// as unset (default, enabled), and any other value is a fatal parse error —
// there is no boolean-ish leniency here ("true"/"yes"/"on" are all
// rejected) because a silently-misparsed disable switch is exactly the kind
// of failure this module exists to prevent elsewhere.
func parseDisableSwitch(name, value string) (bool, error) {
	switch value {
	case "":
		return false, nil
	case "0":
		return false, nil
	case "1":
		return true, nil
	default:
		return false, errors.Newf("modeconfig: %s must be \"0\", \"1\", or unset, got %q", name, value)
	}
}

// parseSize accepts decimal or 0x-prefixed hexadecimal.
func parseSize(name, value string) (uint64, error) {
	if value == "" {
		return DefaultInitialCapacity, nil
	}
	base := 10
	trimmed := value
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		base = 16
		trimmed = value[2:]
	}
	n, err := strconv.ParseUint(trimmed, base, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "modeconfig: %s has invalid value %q", name, value)
	}
	return n, nil
}

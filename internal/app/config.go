package app

import (
	"os"
	"strings"

	"github.com/jeremywohl/flatten"
	"github.com/metal-toolbox/dpuctl/internal/console"
	"github.com/metal-toolbox/dpuctl/internal/firmware"
	"github.com/metal-toolbox/dpuctl/internal/model"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

var (
	ErrConfig = errors.New("configuration error")
)

// Configuration holds application configuration read from a YAML file or set
// by env variables.
//
// nolint:govet // prefer readability over field alignment optimization for this case.
type Configuration struct {
	// LogLevel is the app verbose logging level.
	// one of - info, debug, trace
	LogLevel string `mapstructure:"log_level"`

	// MgmtAddress is the BlueField management channel address.
	MgmtAddress string `mapstructure:"mgmt_address"`

	// FirmwareMirror is the firmware artifact repository URL.
	FirmwareMirror string `mapstructure:"firmware_mirror"`

	// MSTDevice is the mst device node for BlueField mode changes.
	MSTDevice string `mapstructure:"mst_device"`

	// RshimBoot is the rshim boot device bfb streams are pushed into.
	RshimBoot string `mapstructure:"rshim_boot"`

	// SerialBaud is the console line rate.
	SerialBaud int `mapstructure:"serial_baud"`

	// Console holds the serial endpoint paths per family and sub-target.
	Console ConsoleOptions `mapstructure:"console"`

	// IPUAllowedVersions is the firmware version allow-list for the IPU
	// family.
	IPUAllowedVersions []string `mapstructure:"ipu_allowed_versions"`
}

// ConsoleOptions defines the console endpoint paths.
type ConsoleOptions struct {
	BlueField string `mapstructure:"bluefield"`
	IPUIMC    string `mapstructure:"ipu_imc"`
	IPUACC    string `mapstructure:"ipu_acc"`
}

// LoadConfiguration loads application configuration
//
// Reads in the cfgFile when available and overrides from environment variables.
func (a *App) LoadConfiguration(cfgFile string) error {
	a.v.SetConfigType("yaml")
	a.v.SetEnvPrefix(model.AppName)
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	if cfgFile != "" {
		fh, err := os.Open(cfgFile)
		if err != nil {
			return errors.Wrap(ErrConfig, err.Error())
		}

		if err = a.v.ReadConfig(fh); err != nil {
			return errors.Wrap(ErrConfig, "ReadConfig error:"+err.Error())
		}
	}

	a.setDefaults()

	if err := a.envBindVars(); err != nil {
		return errors.Wrap(ErrConfig, "env var bind error:"+err.Error())
	}

	if err := a.v.Unmarshal(a.Config); err != nil {
		return errors.Wrap(ErrConfig, "Unmarshal error: "+err.Error())
	}

	return nil
}

func (a *App) setDefaults() {
	a.v.SetDefault("log_level", "info")
	a.v.SetDefault("mgmt_address", "192.168.100.2")
	a.v.SetDefault("firmware_mirror", "https://content.mellanox.com/BlueField")
	a.v.SetDefault("mst_device", "/dev/mst/mt41686_pciconf0")
	a.v.SetDefault("rshim_boot", "/dev/rshim0/boot")
	a.v.SetDefault("serial_baud", 115200)
	a.v.SetDefault("console.bluefield", "/dev/rshim0/console")
	a.v.SetDefault("console.ipu_imc", "/dev/ttyUSB2")
	a.v.SetDefault("console.ipu_acc", "/dev/ttyUSB0")
	a.v.SetDefault("ipu_allowed_versions", []string{"1.4.0", "1.6.2", "1.8.0"})
}

// envBindVars binds environment variables to the struct
// without a configuration file being unmarshalled,
// this is a workaround for a viper bug,
//
// This can be replaced by the solution in https://github.com/spf13/viper/pull/1429
// once that PR is merged.
func (a *App) envBindVars() error {
	envKeysMap := map[string]interface{}{}
	if err := mapstructure.Decode(a.Config, &envKeysMap); err != nil {
		return err
	}

	// Flatten nested conf map
	flat, err := flatten.Flatten(envKeysMap, "", flatten.DotStyle)
	if err != nil {
		return errors.Wrap(err, "Unable to flatten config")
	}

	for k := range flat {
		if err := a.v.BindEnv(k); err != nil {
			return errors.Wrap(ErrConfig, "env var bind error: "+err.Error())
		}
	}

	return nil
}

// ConsoleEndpoints returns the configured console endpoint paths.
func (a *App) ConsoleEndpoints() console.Endpoints {
	return console.Endpoints{
		BlueField: a.Config.Console.BlueField,
		IPUIMC:    a.Config.Console.IPUIMC,
		IPUACC:    a.Config.Console.IPUACC,
	}
}

// FirmwareOptions returns the firmware controller options for this run.
func (a *App) FirmwareOptions(dryRun bool) firmware.Options {
	return firmware.Options{
		Mirror:          a.Config.FirmwareMirror,
		AllowedVersions: a.Config.IPUAllowedVersions,
		MSTDevice:       a.Config.MSTDevice,
		RshimBoot:       a.Config.RshimBoot,
		DryRun:          dryRun,
	}
}

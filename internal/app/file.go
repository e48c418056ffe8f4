package app

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors the optional TOML configuration file. Pointer fields
// distinguish "unset" from a zero value.
type FileConfig struct {
	Log struct {
		Format *string `toml:"format"`
		Level  *string `toml:"level"`
	} `toml:"log"`
	Engine struct {
		ModulesPath     *string `toml:"modules_path"`
		Workers         *int    `toml:"workers"`
		HealthcheckPort *int    `toml:"healthcheck_port"`
	} `toml:"engine"`
	Oskar struct {
		InterferometerBin *string `toml:"interferometer_bin"`
		ImagerBin         *string `toml:"imager_bin"`
		WorkDir           *string `toml:"work_dir"`
		KeepWorkDir       *bool   `toml:"keep_work_dir"`
	} `toml:"oskar"`
}

// LoadFile reads a TOML configuration file. Unknown keys are rejected.
func LoadFile(path string) (*FileConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config file: %w", err)
	}
	defer f.Close()

	var fc FileConfig
	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("config file %s: %s", path, strict.String())
		}
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return &fc, nil
}

// Apply overlays the values set in the file onto cfg.
func (fc *FileConfig) Apply(cfg *Config) {
	setString(&cfg.LogFormat, fc.Log.Format)
	setString(&cfg.LogLevel, fc.Log.Level)
	setString(&cfg.ModulesPath, fc.Engine.ModulesPath)
	setInt(&cfg.WorkerCount, fc.Engine.Workers)
	setInt(&cfg.HealthcheckPort, fc.Engine.HealthcheckPort)
	setString(&cfg.Oskar.InterferometerBin, fc.Oskar.InterferometerBin)
	setString(&cfg.Oskar.ImagerBin, fc.Oskar.ImagerBin)
	setString(&cfg.Oskar.WorkDir, fc.Oskar.WorkDir)
	if fc.Oskar.KeepWorkDir != nil {
		cfg.Oskar.KeepWorkDir = *fc.Oskar.KeepWorkDir
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

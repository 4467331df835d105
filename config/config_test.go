package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.HTTPAddr != ":8080" || cfg.JobTimeout != 13*time.Hour || cfg.StorageBackend != "local" {
		t.Errorf("unexpected defaults: addr %q timeout %s backend %q", cfg.HTTPAddr, cfg.JobTimeout, cfg.StorageBackend)
	}
	if cfg.Analysis == nil {
		t.Fatal("analysis configuration missing")
	}
	if err := cfg.Analysis.Validate(); err != nil {
		t.Errorf("default analysis configuration invalid: %v", err)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("WORKERS", "6")
	t.Setenv("JOB_TIMEOUT", "90m")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("ENERGY_THRESHOLD", "0.05")
	t.Setenv("MIN_CRY_DURATION", "1.5")
	t.Setenv("HIGH_PITCH_THRESHOLD", "600")
	t.Setenv("NOISE_REDUCTION_LEVEL", "2")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FILE", "/var/log/cry-sonar.log")

	cfg := Load()

	if cfg.HTTPAddr != ":9090" || cfg.Workers != 6 || cfg.JobTimeout != 90*time.Minute || !cfg.MinioUseSSL {
		t.Errorf("process overrides not applied: %+v", cfg)
	}

	a := cfg.Analysis
	if a.Detector.EnergyThreshold != 0.05 || a.Detector.MinDuration != 1.5 ||
		a.Acoustic.HighPitchThreshold != 600 || a.NoiseReductionLevel != 2 {
		t.Errorf("analysis overrides not applied: %+v", a)
	}

	logCfg := cfg.Logging()
	if logCfg.Level != "debug" || logCfg.OutputPath != "/var/log/cry-sonar.log" {
		t.Errorf("unexpected logging config %+v", logCfg)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("WORKERS", "many")
	t.Setenv("JOB_TIMEOUT", "forever")
	t.Setenv("ENERGY_THRESHOLD", "loud")

	cfg := Load()
	if cfg.Workers != 2 || cfg.JobTimeout != 13*time.Hour || cfg.Analysis.Detector.EnergyThreshold != 0.02 {
		t.Errorf("malformed values should fall back to defaults: %+v", cfg)
	}
}

func TestLoadKeepsOutOfRangeForJobValidation(t *testing.T) {
	t.Setenv("ENERGY_THRESHOLD", "0.5")

	cfg := Load()
	if cfg.Analysis.Detector.EnergyThreshold != 0.5 {
		t.Fatalf("threshold = %f", cfg.Analysis.Detector.EnergyThreshold)
	}
	if err := cfg.Analysis.Validate(); err == nil {
		t.Error("out-of-range threshold should fail validation")
	}
}

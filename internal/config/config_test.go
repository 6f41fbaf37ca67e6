package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	config "github.com/okian/encore/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func TestConfigDefaults(t *testing.T) {
	Convey("Given a default config", t, func() {
		cfg := config.New()

		Convey("Then it carries sensible defaults", func() {
			So(cfg.Addr, ShouldEqual, ":9080")
			So(cfg.LogLevel, ShouldEqual, "info")
			So(cfg.DBPath, ShouldEqual, "")
			So(cfg.ScoreTimeout, ShouldEqual, 30*time.Second)
			So(cfg.PingInterval, ShouldEqual, 30*time.Second)
			So(cfg.TokenTTL, ShouldEqual, time.Hour)
			So(cfg.ClientQueueSize, ShouldEqual, 64)
			So(cfg.PermanentClients, ShouldResemble, []string{"dj0", "sb10"})
		})
	})
}

func TestLoadDefaults(t *testing.T) {
	Convey("When nothing overrides the defaults", t, func() {
		cfg, err := config.Load(context.Background())

		Convey("Then the defaults load cleanly", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":9080")
		})
	})
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "encore.yaml")
	if err := os.WriteFile(path, []byte("addr: \":7070\"\nscore_timeout: 10s\n"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("ENCORE_CONFIG", path)

	Convey("When a YAML file is provided", t, func() {
		cfg, err := config.Load(context.Background())

		Convey("Then file values override defaults", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":7070")
			So(cfg.ScoreTimeout, ShouldEqual, 10*time.Second)
			// Untouched keys keep their defaults
			So(cfg.PermanentClients, ShouldResemble, []string{"dj0", "sb10"})
		})
	})
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ENCORE_ADDR", ":6060")
	t.Setenv("ENCORE_LOG_LEVEL", "debug")

	Convey("When environment variables are provided", t, func() {
		cfg, err := config.Load(context.Background())

		Convey("Then env values win", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":6060")
			So(cfg.LogLevel, ShouldEqual, "debug")
		})
	})
}

func TestLoadBadFile(t *testing.T) {
	t.Setenv("ENCORE_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	Convey("When the file path is bogus", t, func() {
		_, err := config.Load(context.Background())

		Convey("Then loading fails with the load sentinel", func() {
			So(err, ShouldWrap, config.ErrLoadConfig)
		})
	})
}

func TestLoadValidation(t *testing.T) {
	t.Setenv("ENCORE_ADDR", "")

	Convey("When validation rejects the merged config", t, func() {
		_, err := config.Load(context.Background())

		Convey("Then the invalid-config sentinel surfaces", func() {
			So(err, ShouldWrap, config.ErrInvalidConfig)
		})
	})
}

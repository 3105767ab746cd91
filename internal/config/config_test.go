package config_test

import (
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/treevault/internal/config"
)

func TestLoad(t *testing.T) {
	c := qt.New(t)

	c.Run("missing file returns defaults", func(c *qt.C) {
		cfg, err := config.Load(filepath.Join(c.TB.TempDir(), "nope.yaml"))
		c.Assert(err, qt.IsNil)
		c.Assert(cfg.Backend, qt.Equals, "json")
		c.Assert(cfg.Store, qt.Equals, "")
	})

	c.Run("full file applies", func(c *qt.C) {
		path := filepath.Join(c.TB.TempDir(), "config.yaml")
		err := os.WriteFile(path, []byte("backend: sqlite\nstore: /tmp/x.db\n"), 0o600)
		c.Assert(err, qt.IsNil)

		cfg, err := config.Load(path)
		c.Assert(err, qt.IsNil)
		c.Assert(cfg.Backend, qt.Equals, "sqlite")
		c.Assert(cfg.Store, qt.Equals, "/tmp/x.db")
	})

	c.Run("partial file keeps defaults for missing keys", func(c *qt.C) {
		path := filepath.Join(c.TB.TempDir(), "config.yaml")
		err := os.WriteFile(path, []byte("store: custom.json\n"), 0o600)
		c.Assert(err, qt.IsNil)

		cfg, err := config.Load(path)
		c.Assert(err, qt.IsNil)
		c.Assert(cfg.Backend, qt.Equals, "json")
		c.Assert(cfg.Store, qt.Equals, "custom.json")
	})

	c.Run("malformed yaml fails", func(c *qt.C) {
		path := filepath.Join(c.TB.TempDir(), "config.yaml")
		err := os.WriteFile(path, []byte("backend: [unclosed\n"), 0o600)
		c.Assert(err, qt.IsNil)

		_, err = config.Load(path)
		c.Assert(err, qt.IsNotNil)
	})
}

func TestRootDir(t *testing.T) {
	c := qt.New(t)

	c.Run("honours the environment override", func(c *qt.C) {
		dir := c.TB.TempDir()
		c.Setenv("TREEVAULT_HOME", dir)
		c.Assert(config.RootDir(), qt.Equals, dir)
		c.Assert(config.ConfigPath(), qt.Equals, filepath.Join(dir, "config.yaml"))
	})

	c.Run("defaults under the user home", func(c *qt.C) {
		c.Setenv("TREEVAULT_HOME", "")
		home, err := os.UserHomeDir()
		c.Assert(err, qt.IsNil)
		c.Assert(config.RootDir(), qt.Equals, filepath.Join(home, ".treevault"))
	})
}

func TestDefaultStorePath(t *testing.T) {
	c := qt.New(t)

	dir := c.TB.TempDir()
	c.Setenv("TREEVAULT_HOME", dir)
	c.Assert(config.DefaultStorePath("json"), qt.Equals, filepath.Join(dir, "root_storage.json"))
	c.Assert(config.DefaultStorePath("sqlite"), qt.Equals, filepath.Join(dir, "root_storage.db"))
}

package main

import (
	"sync"

	"github.com/sirupsen/logrus"

	"vsdlisr/internal/config"
	"vsdlisr/internal/dlisr"
	"vsdlisr/internal/logging"
	"vsdlisr/internal/ngx"
	"vsdlisr/internal/version"
	"vsdlisr/internal/vs"
)

// registration is what the plugin tells the host at load time.
var registration = vs.Plugin{
	ID:         "moe.grass.vsdlisr",
	Namespace:  "vsdlisr",
	Name:       "vsdlisr",
	Version:    vs.MakeVersion(version.PluginMajor, version.PluginMinor),
	APIVersion: vs.APIVersion,
	Functions: []vs.Function{{
		Name:    dlisr.FilterName,
		Args:    "clip:vnode;rfactor:int:opt;",
		Returns: "clip:vnode;",
	}},
}

var (
	envOnce sync.Once
	env     dlisr.Env

	// loadEnv is replaced in tests.
	loadEnv = defaultEnv
)

// defaultEnv reads the plugin's configuration once per process and sets up
// logging. A broken config is logged and ignored; the filter then runs with
// default settings. Preview settings are never consulted here.
func defaultEnv() dlisr.Env {
	cfg, err := config.LoadPlugin("")
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "defaultEnv",
		}).WithError(err).Warn("Using default configuration")
		cfg = config.DefaultConfig()
	}
	if err := logging.Init(cfg.Logging.Level, cfg.Logging.File, cfg.Logging.Console); err != nil {
		logrus.WithError(err).Warn("Failed to open log file")
	}
	logrus.WithFields(logrus.Fields{
		"function":    "defaultEnv",
		"version":     version.String(),
		"engine_path": cfg.NGX.EnginePath,
	}).Info("vsdlisr loaded")
	return dlisr.Env{NGX: ngx.Config{AppID: cfg.NGX.AppID, EnginePath: cfg.NGX.EnginePath}}
}

func pluginEnv() dlisr.Env {
	envOnce.Do(func() { env = loadEnv() })
	return env
}

// createFilter opens a filter for one host call. On failure it returns the
// message to report on the output map.
func createFilter(args vs.Map) (*dlisr.Filter, string) {
	f, err := dlisr.Create(args, pluginEnv())
	if err != nil {
		return nil, vs.PrefixError(dlisr.FilterName, err)
	}
	return f, ""
}

package engine

import (
	"fmt"

	"github.com/spaghettifunk/vulcano/engine/config"
	"github.com/spaghettifunk/vulcano/engine/core"
	"github.com/spaghettifunk/vulcano/engine/renderer/metadata"
	"github.com/spaghettifunk/vulcano/engine/renderer/null"
	"github.com/spaghettifunk/vulcano/engine/renderer/vulkan"
	"github.com/spaghettifunk/vulcano/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

type Engine struct {
	currentStage  Stage
	config        *config.Config
	systemManager *systems.SystemManager
	watcher       *config.Watcher
}

func New(configPath string) (*Engine, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	core.SetLogLevel(cfg.Renderer.LogLevel)

	e := &Engine{
		currentStage: EngineStageUninitialized,
		config:       cfg,
	}

	// Config changes on disk only adjust the log level at runtime; the
	// limits and the backend are fixed once the engine is initialized.
	if configPath != "" {
		w, err := config.NewWatcher(configPath, func(updated *config.Config) {
			core.SetLogLevel(updated.Renderer.LogLevel)
			core.LogInfo("configuration reloaded, log level is now `%s`", updated.Renderer.LogLevel)
		})
		if err != nil {
			core.LogWarn("config watcher unavailable: %s", err.Error())
		} else {
			e.watcher = w
		}
	}
	return e, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	var backend metadata.BindingBackend
	switch e.config.Renderer.Backend {
	case config.BackendVulkan:
		backend = vulkan.New(e.config.Limits.DescriptorPoolHeadroom)
	case config.BackendNull:
		backend = null.New()
	default:
		return fmt.Errorf("unknown renderer backend `%s`", e.config.Renderer.Backend)
	}

	sm, err := systems.NewSystemManager(e.config, backend)
	if err != nil {
		core.LogError(err.Error())
		return err
	}
	e.systemManager = sm

	e.currentStage = EngineStageInitialized
	core.LogInfo("engine initialized with `%s` backend", e.config.Renderer.Backend)
	return nil
}

// Systems exposes the binding API surface.
func (e *Engine) Systems() *systems.SystemManager {
	return e.systemManager
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	if e.watcher != nil {
		if err := e.watcher.Close(); err != nil {
			core.LogWarn("config watcher failed to close: %s", err.Error())
		}
	}
	if e.systemManager != nil {
		if err := e.systemManager.Shutdown(); err != nil {
			return err
		}
	}
	return nil
}

package engine

import (
	"github.com/spaghettifunk/pneuma/engine/renderer/metadata"
	"github.com/spaghettifunk/pneuma/engine/systems"
)

type Game struct {
	ApplicationConfig *ApplicationConfig
	SystemManager     *systems.SystemManager
	State             interface{}
	FnBoot            Boot
	FnInitialize      Initialize
	FnUpdate          Update
	FnRender          Render
	FnOnResize        OnResize
	FnShutdown        Shutdown
}

// Boot runs before the subsystems come up. The game uses it to finish its
// ApplicationConfig, typically by appending render views or fonts.
type Boot func() error
type Initialize func() error
type Update func(deltaTime float64) error
type Render func(packet *metadata.RenderPacket, deltaTime float64) error
type OnResize func(width uint32, height uint32) error
type Shutdown func() error

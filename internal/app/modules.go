package app

import (
	"github.com/vk/pipeforge/internal/registry"
	"github.com/vk/pipeforge/modules/artifacts"
	"github.com/vk/pipeforge/modules/cache"
	"github.com/vk/pipeforge/modules/checkout"
	"github.com/vk/pipeforge/modules/coveragestep"
	"github.com/vk/pipeforge/modules/runcmd"
	"github.com/vk/pipeforge/modules/workspacestep"
)

// coreModules is the definitive list of all step modules that are compiled
// into the pipeforge binary.
var coreModules = []registry.Module{
	&checkout.Module{},
	&runcmd.Module{},
	&cache.Module{},
	&workspacestep.Module{},
	&artifacts.Module{},
	&coveragestep.Module{},
}

package app

import (
	"github.com/specialistvlad/capscan/internal/registry"
	"github.com/specialistvlad/capscan/modules/eventbit"
	"github.com/specialistvlad/capscan/modules/toybit"
	"github.com/specialistvlad/capscan/modules/toylib"
	"github.com/specialistvlad/capscan/modules/toymodels"
)

// coreModules is the definitive list of all modules that are compiled into
// the capscan binary.
var coreModules = []registry.Module{
	&toymodels.Module{},
	&toylib.Module{},
	&toybit.Module{},
	&eventbit.Module{},
}

package entity

import (
	"context"

	"flairbridge/internal/model"
	"flairbridge/internal/translate"
)

// SelectKind identifies one single-choice setting.
type SelectKind string

const (
	SelectSystemMode          SelectKind = "system_mode"
	SelectHomeAwayMode        SelectKind = "home_away_mode"
	SelectHomeAwaySetBy       SelectKind = "home_away_set_by"
	SelectDefaultHoldDuration SelectKind = "default_hold_duration"
	SelectSetPointController  SelectKind = "set_point_controller"
	SelectSchedule            SelectKind = "schedule"
	SelectAwayMode            SelectKind = "away_mode"
	SelectPuckBackground      SelectKind = "background_color"
	SelectPuckTempScale       SelectKind = "temp_scale"
)

// StructureSelectKinds are created once per structure.
var StructureSelectKinds = []SelectKind{
	SelectSystemMode,
	SelectHomeAwayMode,
	SelectHomeAwaySetBy,
	SelectDefaultHoldDuration,
	SelectSetPointController,
	SelectSchedule,
	SelectAwayMode,
}

// PuckSelectKinds are created once per puck.
var PuckSelectKinds = []SelectKind{
	SelectPuckBackground,
	SelectPuckTempScale,
}

// selectSpec describes how one select reads and writes its attribute.
type selectSpec struct {
	name     string
	scope    model.Collection
	category string
	options  func(st *model.Structure) []string
	current  func(st *model.Structure, r *model.Resource) string
	// available defaults to "the resource exists".
	available func(st *model.Structure, r *model.Resource) bool
	// write returns the path and attributes for option. ok is false when
	// the option has no Flair value.
	write func(st *model.Structure, r *model.Resource, option string) (path model.Path, attrs map[string]interface{}, ok bool)
}

func hasThermostats(st *model.Structure) bool {
	return len(st.Thermostats) > 0
}

var selectSpecs = map[SelectKind]selectSpec{
	SelectSystemMode: {
		name: "System Mode",
		options: func(*model.Structure) []string {
			return append([]string(nil), translate.SystemModes...)
		},
		current: func(st *model.Structure, _ *model.Resource) string {
			return capitalize(st.String("mode"))
		},
		write: func(st *model.Structure, _ *model.Resource, option string) (model.Path, map[string]interface{}, bool) {
			return model.StructurePath(st.ID), map[string]interface{}{"mode": lowerFirst(option)}, true
		},
	},
	SelectHomeAwayMode: {
		name: "Home/Away",
		options: func(*model.Structure) []string {
			return append([]string(nil), translate.HomeAwayModes...)
		},
		current: func(st *model.Structure, _ *model.Resource) string {
			if st.Bool("home", true) {
				return "Home"
			}
			return "Away"
		},
		available: func(st *model.Structure, _ *model.Resource) bool {
			return st.String("mode") != structureManual
		},
		write: func(st *model.Structure, _ *model.Resource, option string) (model.Path, map[string]interface{}, bool) {
			return model.StructurePath(st.ID), map[string]interface{}{"home": option == "Home"}, true
		},
	},
	SelectHomeAwaySetBy: {
		name: "Home/Away Mode Set By",
		options: func(st *model.Structure) []string {
			if hasThermostats(st) {
				return translate.HomeAwaySetBy.HostValues()
			}
			return []string{"Manual", "Flair App Geolocation"}
		},
		current: func(st *model.Structure, _ *model.Resource) string {
			return translate.HomeAwaySetBy.ForwardOr(st.String("home-away-mode"), "")
		},
		write: func(st *model.Structure, _ *model.Resource, option string) (model.Path, map[string]interface{}, bool) {
			v, ok := translate.HomeAwaySetBy.Reverse(option)
			return model.StructurePath(st.ID), map[string]interface{}{"home-away-mode": v}, ok
		},
	},
	SelectDefaultHoldDuration: {
		name: "Default Hold Duration",
		options: func(*model.Structure) []string {
			return translate.HoldDurations.HostValues()
		},
		current: func(st *model.Structure, _ *model.Resource) string {
			return translate.HoldDurations.ForwardOr(st.String("default-hold-duration"), "")
		},
		write: func(st *model.Structure, _ *model.Resource, option string) (model.Path, map[string]interface{}, bool) {
			v, ok := translate.HoldDurations.Reverse(option)
			return model.StructurePath(st.ID), map[string]interface{}{"default-hold-duration": v}, ok
		},
	},
	SelectSetPointController: {
		name: "Set Point Controller",
		options: func(st *model.Structure) []string {
			if hasThermostats(st) {
				return translate.SetPointControllers.HostValues()
			}
			return []string{translate.ControllerFlairApp}
		},
		current: func(st *model.Structure, _ *model.Resource) string {
			return translate.SetPointControllers.ForwardOr(st.String("set-point-mode"), "")
		},
		write: func(st *model.Structure, _ *model.Resource, option string) (model.Path, map[string]interface{}, bool) {
			v, ok := translate.SetPointControllers.Reverse(option)
			return model.StructurePath(st.ID), map[string]interface{}{"set-point-mode": v}, ok
		},
	},
	SelectSchedule: {
		name: "Active Schedule",
		options: func(st *model.Structure) []string {
			opts := []string{translate.NoSchedule}
			for _, id := range st.SortedIDs(model.CollectionSchedules) {
				opts = append(opts, st.Schedules[id].Name())
			}
			return opts
		},
		current: func(st *model.Structure, _ *model.Resource) string {
			if sched, ok := st.Schedules[st.String("active-schedule-id")]; ok {
				return sched.Name()
			}
			return translate.NoSchedule
		},
		write: func(st *model.Structure, _ *model.Resource, option string) (model.Path, map[string]interface{}, bool) {
			path := model.StructurePath(st.ID)
			if option == translate.NoSchedule {
				return path, map[string]interface{}{"active-schedule-id": nil}, true
			}
			for _, id := range st.SortedIDs(model.CollectionSchedules) {
				if st.Schedules[id].Name() == option {
					return path, map[string]interface{}{"active-schedule-id": id}, true
				}
			}
			return path, nil, false
		},
	},
	SelectAwayMode: {
		name: "Away Mode",
		options: func(*model.Structure) []string {
			return append([]string(nil), translate.AwayModes...)
		},
		current: func(st *model.Structure, _ *model.Resource) string {
			return st.String("structure-away-mode")
		},
		write: func(st *model.Structure, _ *model.Resource, option string) (model.Path, map[string]interface{}, bool) {
			return model.StructurePath(st.ID), map[string]interface{}{"structure-away-mode": option}, true
		},
	},
	SelectPuckBackground: {
		name:     "Background Color",
		scope:    model.CollectionPucks,
		category: CategoryConfig,
		options: func(*model.Structure) []string {
			return append([]string(nil), translate.PuckBackgrounds...)
		},
		current: func(_ *model.Structure, puck *model.Resource) string {
			return capitalize(puck.String("puck-display-color"))
		},
		write: func(st *model.Structure, puck *model.Resource, option string) (model.Path, map[string]interface{}, bool) {
			return model.ChildPath(st.ID, model.CollectionPucks, puck.ID),
				map[string]interface{}{"puck-display-color": lowerFirst(option)}, true
		},
	},
	SelectPuckTempScale: {
		name:     "Temperature Scale",
		scope:    model.CollectionPucks,
		category: CategoryConfig,
		options: func(*model.Structure) []string {
			return translate.TemperatureScales.HostValues()
		},
		current: func(st *model.Structure, _ *model.Resource) string {
			return translate.TemperatureScales.ForwardOr(st.String("temperature-scale"), translate.DefaultScaleLabel)
		},
		// The display scale is a structure attribute, so the structure is
		// both written and patched.
		write: func(st *model.Structure, _ *model.Resource, option string) (model.Path, map[string]interface{}, bool) {
			v, ok := translate.TemperatureScales.Reverse(option)
			return model.StructurePath(st.ID), map[string]interface{}{"temperature-scale": v}, ok
		},
	},
}

// Select is a single-choice setting bound to one Flair attribute.
type Select struct {
	base
	kind        SelectKind
	spec        selectSpec
	structureID string
	id          string
}

// NewStructureSelect creates a structure-level select.
func NewStructureSelect(deps Deps, kind SelectKind, structureID string) *Select {
	return newSelect(deps, kind, structureID, structureID)
}

// NewPuckSelect creates a puck-level select.
func NewPuckSelect(deps Deps, kind SelectKind, structureID, puckID string) *Select {
	return newSelect(deps, kind, structureID, puckID)
}

func newSelect(deps Deps, kind SelectKind, structureID, id string) *Select {
	s := &Select{
		base:        newBase(deps, id+"_"+string(kind)),
		kind:        kind,
		spec:        selectSpecs[kind],
		structureID: structureID,
		id:          id,
	}
	s.self = s
	return s
}

func (s *Select) Kind() SelectKind { return s.kind }

func (s *Select) Platform() Platform { return PlatformSelect }

func (s *Select) EnabledByDefault() bool { return true }

// StructureID is the structure the select belongs to.
func (s *Select) StructureID() string { return s.structureID }

func (s *Select) Category() string { return s.spec.category }

func (s *Select) resolve() (*model.Structure, *model.Resource, bool) {
	st, ok := s.structure(s.structureID)
	if !ok {
		return nil, nil, false
	}
	if s.spec.scope == model.CollectionSelf {
		return st, st.Resource, true
	}
	r, ok := st.Children(s.spec.scope)[s.id]
	return st, r, ok
}

func (s *Select) Name() string {
	_, r, ok := s.resolve()
	if !ok {
		return s.spec.name
	}
	return r.Name() + " " + s.spec.name
}

func (s *Select) Device() DeviceInfo {
	st, r, ok := s.resolve()
	if !ok {
		return DeviceInfo{ID: s.id, Name: s.id, Manufacturer: "Flair"}
	}
	if s.spec.scope == model.CollectionPucks {
		return childDevice(r, "Puck")
	}
	return structureDevice(st)
}

func (s *Select) Available() bool {
	st, r, ok := s.resolve()
	if !ok {
		return false
	}
	if s.spec.available != nil {
		return s.spec.available(st, r)
	}
	return true
}

// Options returns the current option list.
func (s *Select) Options() []string {
	st, _, ok := s.resolve()
	if !ok {
		return nil
	}
	return s.spec.options(st)
}

// CurrentOption returns the selected option, or "" when unknown.
func (s *Select) CurrentOption() string {
	st, r, ok := s.resolve()
	if !ok {
		return ""
	}
	return s.spec.current(st, r)
}

func (s *Select) State() map[string]interface{} {
	return map[string]interface{}{
		"option":    s.CurrentOption(),
		"options":   s.Options(),
		"available": s.Available(),
	}
}

// SelectOption persists option to Flair.
func (s *Select) SelectOption(ctx context.Context, option string) error {
	const command = "select_option"

	st, r, ok := s.resolve()
	if !ok {
		return s.reject(command, option, "resource not found")
	}
	if !contains(s.spec.options(st), option) {
		return s.unsupported(command, option)
	}
	path, attrs, ok := s.spec.write(st, r, option)
	if !ok {
		return s.unsupported(command, option)
	}
	return s.apply(ctx, command, option, write{path: path, attrs: attrs})
}

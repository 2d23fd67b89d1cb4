package platform

import (
	"flairbridge/internal/entity"
	"flairbridge/internal/model"

	"go.uber.org/zap"
)

// ClimateFactory creates one climate per structure, room and HVAC unit.
// HVAC units without a temperature scale cannot convert set points and
// are skipped.
func ClimateFactory(ctx *Context) ([]entity.Entity, error) {
	var out []entity.Entity
	for _, st := range ctx.structures() {
		out = append(out, entity.NewStructureClimate(ctx.Deps, st.ID, ctx.Imperial))

		for _, id := range st.SortedIDs(model.CollectionRooms) {
			out = append(out, entity.NewRoomClimate(ctx.Deps, st.ID, id, ctx.RoomPolicy))
		}

		for _, id := range st.SortedIDs(model.CollectionHVACUnits) {
			unit := st.HVACUnits[id]
			if _, ok := entity.UnitTemperatureScale(unit); !ok {
				ctx.Logger.Error("HVAC unit has no temperature scale, skipping",
					zap.String("structure", st.ID),
					zap.String("unit", id),
					zap.String("name", unit.Name()))
				continue
			}
			out = append(out, entity.NewHVACClimate(ctx.Deps, st.ID, id))
		}
	}
	return out, nil
}

// SelectFactory creates the structure settings and per-puck selects.
func SelectFactory(ctx *Context) ([]entity.Entity, error) {
	var out []entity.Entity
	for _, st := range ctx.structures() {
		for _, kind := range entity.StructureSelectKinds {
			out = append(out, entity.NewStructureSelect(ctx.Deps, kind, st.ID))
		}
		for _, id := range st.SortedIDs(model.CollectionPucks) {
			for _, kind := range entity.PuckSelectKinds {
				out = append(out, entity.NewPuckSelect(ctx.Deps, kind, st.ID, id))
			}
		}
	}
	return out, nil
}

// SensorFactory creates hold, puck and vent sensors.
func SensorFactory(ctx *Context) ([]entity.Entity, error) {
	var out []entity.Entity
	add := func(kinds []entity.SensorKind, structureID, id string) {
		for _, kind := range kinds {
			out = append(out, entity.NewSensor(ctx.Deps, kind, structureID, id))
		}
	}

	for _, st := range ctx.structures() {
		add(entity.StructureSensorKinds, st.ID, st.ID)
		for _, id := range st.SortedIDs(model.CollectionRooms) {
			add(entity.RoomSensorKinds, st.ID, id)
		}
		for _, id := range st.SortedIDs(model.CollectionPucks) {
			add(entity.PuckSensorKinds, st.ID, id)
		}
		for _, id := range st.SortedIDs(model.CollectionVents) {
			add(entity.VentSensorKinds, st.ID, id)
		}
	}
	return out, nil
}

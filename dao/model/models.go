package model

// All lists every persisted model, in a dependency-friendly order for
// schema migration.
func All() []any {
	return []any{
		&Vehicle{},
		&Driver{},
		&Sensor{},
		&Measurement{},
		&Datastream{},
		&Scene{},
		&Pipeline{},
		&PipelineData{},
		&PipelineState{},
		&PipelineDependency{},
		&Dataset{},
		&DatasetMember{},
	}
}

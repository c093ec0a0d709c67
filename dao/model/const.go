package model

// Dataset lifecycle status
type DatasetStatus int16

const (
	DatasetCreating DatasetStatus = iota
	DatasetReady
	DatasetProcessing
	DatasetFailed
)

func (s DatasetStatus) Valid() bool {
	return s >= DatasetCreating && s <= DatasetFailed
}

// Dataset source kind
type DatasetSourceType int16

const (
	SourceComposed     DatasetSourceType = iota // composed of member references
	SourceExternalFile                          // backed by a prebuilt file (pickle, parquet, etc.)
)

// ItemKind discriminates dataset member references. One-based so the zero
// value is invalid; legacy zero-based rows are lifted by cmd/migrate.
type ItemKind int16

const (
	_ ItemKind = iota
	ItemKindDatastream
	ItemKindScene
	ItemKindDataset
)

func (k ItemKind) Valid() bool {
	return k >= ItemKindDatastream && k <= ItemKindDataset
}

// Driver certification level
type CertificationLevel int16

const (
	CertTrainee CertificationLevel = iota
	CertBasic
	CertAdvanced
	CertExpert
)

// Driver status
type DriverStatus int16

const (
	DriverInactive DriverStatus = iota
	DriverActive
	DriverOnLeave
	DriverRetired
)

// Driver employment type
type EmploymentType int16

const (
	EmploymentFullTime EmploymentType = iota
	EmploymentContract
	EmploymentPartTime
	EmploymentExternal
)

// Sensor type, aligned with datastream types
type SensorType int16

const (
	SensorCamera SensorType = iota
	SensorLidar
	SensorRadar
	SensorIMU
	SensorGPS
	SensorCAN
	SensorUltrasonic
	SensorThermal
	SensorMicrophone
	SensorOther SensorType = 99
)

package sprintzero

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/lucasjlepore/sprint-analyzer/curve"
)

// GPSNotApplicable is the GPS verification status used when a sprint
// carries none.
const GPSNotApplicable = "notApplicable"

// Split is one timing mark recorded along the sprint.
type Split struct {
	DistanceMark    float64 `json:"distanceMark"`
	Time            float64 `json:"time"`
	SegmentVelocity float64 `json:"segmentVelocity"`
}

// SprintMeta is passed through to results untouched apart from the
// defaults documented on each field. Nil numbers were not recorded.
type SprintMeta struct {
	ReactionTime      *float64 `json:"reaction_time,omitempty"`
	IsFalseStart      bool     `json:"is_false_start"`
	PeakPropulsiveG   *float64 `json:"peak_propulsive_g,omitempty"`
	AvgPropulsiveG    *float64 `json:"avg_propulsive_g,omitempty"`
	MaxGForce         *float64 `json:"max_g_force,omitempty"`
	AvgCadence        *float64 `json:"avg_cadence,omitempty"`
	StepCount         *int     `json:"step_count,omitempty"`
	AvgStrideLength   *float64 `json:"avg_stride_length,omitempty"`
	MaxVelocity       *float64 `json:"max_velocity,omitempty"`
	TimeToMaxVelocity *float64 `json:"time_to_max_velocity,omitempty"`
	ArmDriveFocus     *float64 `json:"arm_drive_focus,omitempty"`
	PeakArmVelocity   *float64 `json:"peak_arm_velocity,omitempty"`
	// GPSStatus defaults to GPSNotApplicable.
	GPSStatus string  `json:"gps_status"`
	Splits    []Split `json:"splits"`
}

// SprintRecord is one recorded sprint as handed over by ingestion. Curves
// come either as two base64 JSON strings or as one compressed
// CompactCurvePayload; CurvePayload wins when both are set.
type SprintRecord struct {
	// Position is the record's 0-based place in its source.
	Position          int
	Date              string
	Distance          int
	AccelerationCurve string
	GyroscopeCurve    string
	CurvePayload      []byte
	Meta              SprintMeta
}

// HasCurves reports whether the record carries curve data in either format.
func (r SprintRecord) HasCurves() bool {
	if len(r.CurvePayload) > 0 {
		return true
	}
	return r.AccelerationCurve != "" && r.GyroscopeCurve != ""
}

// Curves decodes and loads the record's acceleration and gyroscope curves.
func (r SprintRecord) Curves() (accel, gyro curve.Curve, err error) {
	if !r.HasCurves() {
		return curve.Curve{}, curve.Curve{}, ErrNoCurves
	}
	if len(r.CurvePayload) > 0 {
		p, err := curve.DecodeCompressed(r.CurvePayload)
		if err != nil {
			return curve.Curve{}, curve.Curve{}, fmt.Errorf("curve payload: %w", err)
		}
		return curve.Load(curve.Acceleration, p.Acceleration), curve.Load(curve.Gyroscope, p.Gyroscope), nil
	}

	rawAccel, err := curve.DecodeJSONCurve(r.AccelerationCurve)
	if err != nil {
		return curve.Curve{}, curve.Curve{}, fmt.Errorf("acceleration curve: %w", err)
	}
	rawGyro, err := curve.DecodeJSONCurve(r.GyroscopeCurve)
	if err != nil {
		return curve.Curve{}, curve.Curve{}, fmt.Errorf("gyroscope curve: %w", err)
	}
	return curve.Load(curve.Acceleration, rawAccel), curve.Load(curve.Gyroscope, rawGyro), nil
}

type sprintZeroFile struct {
	Sessions []struct {
		Date    string        `json:"date"`
		Sprints []SprintEntry `json:"sprints"`
	} `json:"sessions"`
}

// SprintEntry mirrors the camelCase sprint objects shared by .sprintzero
// files and session documents.
type SprintEntry struct {
	ID                    string   `json:"id"`
	Distance              int      `json:"distance"`
	AccelerationCurve     string   `json:"accelerationCurve"`
	GyroscopeCurve        string   `json:"gyroscopeCurve"`
	ReactionTime          *float64 `json:"reactionTime"`
	IsFalseStart          *bool    `json:"isFalseStart"`
	PeakPropulsiveG       *float64 `json:"peakPropulsiveG"`
	AvgPropulsiveG        *float64 `json:"avgPropulsiveG"`
	MaxGForce             *float64 `json:"maxGForce"`
	AvgCadence            *float64 `json:"avgCadence"`
	StepCount             *int     `json:"stepCount"`
	AvgStrideLength       *float64 `json:"avgStrideLength"`
	MaxVelocity           *float64 `json:"maxVelocity"`
	TimeToMaxVelocity     *float64 `json:"timeToMaxVelocity"`
	ArmDriveFocus         *float64 `json:"armDriveFocus"`
	PeakArmVelocity       *float64 `json:"peakArmVelocity"`
	GPSVerificationStatus *string  `json:"gpsVerificationStatus"`
	SplitTimesData        *string  `json:"splitTimesData"`
}

// Meta applies the passthrough defaults to the entry's metadata fields.
func (e SprintEntry) Meta() SprintMeta {
	m := SprintMeta{
		ReactionTime:      e.ReactionTime,
		PeakPropulsiveG:   e.PeakPropulsiveG,
		AvgPropulsiveG:    e.AvgPropulsiveG,
		MaxGForce:         e.MaxGForce,
		AvgCadence:        e.AvgCadence,
		StepCount:         e.StepCount,
		AvgStrideLength:   e.AvgStrideLength,
		MaxVelocity:       e.MaxVelocity,
		TimeToMaxVelocity: e.TimeToMaxVelocity,
		ArmDriveFocus:     e.ArmDriveFocus,
		PeakArmVelocity:   e.PeakArmVelocity,
		GPSStatus:         GPSNotApplicable,
		Splits:            []Split{},
	}
	if e.IsFalseStart != nil {
		m.IsFalseStart = *e.IsFalseStart
	}
	if e.GPSVerificationStatus != nil {
		m.GPSStatus = *e.GPSVerificationStatus
	}
	if e.SplitTimesData != nil {
		m.Splits = decodeSplits(*e.SplitTimesData)
	}
	return m
}

// decodeSplits never fails: undecodable split data yields no splits.
func decodeSplits(encoded string) []Split {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return []Split{}
	}
	var splits []Split
	if err := json.Unmarshal(raw, &splits); err != nil || splits == nil {
		return []Split{}
	}
	return splits
}

// ParseFile reads the sprints of a .sprintzero JSON document in file order.
// Every sprint is returned; AnalyzeRecords decides which ones to analyze.
func ParseFile(data []byte) ([]SprintRecord, error) {
	var f sprintZeroFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("invalid .sprintzero JSON: %w", err)
	}

	var records []SprintRecord
	for _, session := range f.Sessions {
		date := session.Date
		if len(date) > 10 {
			date = date[:10]
		}
		for _, s := range session.Sprints {
			records = append(records, SprintRecord{
				Position:          len(records),
				Date:              date,
				Distance:          s.Distance,
				AccelerationCurve: s.AccelerationCurve,
				GyroscopeCurve:    s.GyroscopeCurve,
				Meta:              s.Meta(),
			})
		}
	}
	return records, nil
}

// ReadFile loads and parses a .sprintzero file from disk.
func ReadFile(path string) ([]SprintRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sprintzero file: %w", err)
	}
	return ParseFile(data)
}

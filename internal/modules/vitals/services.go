package vitals

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/health-manager/internal/session"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/validation"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrVitalNotFound    = errors.New("vital record not found")
	ErrUnknownType      = validation.Invalid("vital_type must be one of: Blood Pressure, Blood Sugar, Weight, Heart Rate")
	ErrDiastolicMissing = validation.Invalid("value2 (diastolic) is required for blood pressure and must be greater than 0")
	ErrUnexpectedValue2 = validation.Invalid("value2 is only accepted for blood pressure")
	ErrInvalidRecorded  = validation.Invalid("recorded_at must be an RFC3339 timestamp or YYYY-MM-DDTHH:MM")
)

var recordedLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

type VitalService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewVitalService(db *gorm.DB) *VitalService {
	return &VitalService{db: db, now: time.Now}
}

// IsKnownType reports whether t is one of Types.
func IsKnownType(t string) bool {
	_, ok := rules[t]
	return ok
}

func (s *VitalService) Log(userID uuid.UUID, req CreateVitalRequest) (*HealthVital, error) {
	req.VitalType = strings.TrimSpace(req.VitalType)
	if req.VitalType != "" && !IsKnownType(req.VitalType) {
		return nil, ErrUnknownType
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	r := rules[req.VitalType]

	if r.twoValues {
		if req.Value2 == nil || *req.Value2 <= 0 {
			return nil, ErrDiastolicMissing
		}
	} else if req.Value2 != nil {
		return nil, ErrUnexpectedValue2
	}

	unit := strings.TrimSpace(req.Unit)
	if unit == "" {
		unit = r.units[0]
	} else if !contains(r.units, unit) {
		return nil, validation.Invalid(fmt.Sprintf("unit for %s must be one of: %s", req.VitalType, strings.Join(r.units, ", ")))
	}

	recorded := s.now().UTC()
	if v := strings.TrimSpace(req.RecordedAt); v != "" {
		t, err := parseRecorded(v)
		if err != nil {
			return nil, err
		}
		recorded = t
	}

	vital := HealthVital{
		ID:         uuid.New(),
		UserID:     userID,
		VitalType:  req.VitalType,
		Value1:     req.Value1,
		Value2:     req.Value2,
		Unit:       unit,
		RecordedAt: recorded,
	}
	if err := s.db.Create(&vital).Error; err != nil {
		return nil, err
	}
	return &vital, nil
}

// List returns vitals oldest first, optionally filtered by type.
func (s *VitalService) List(userID uuid.UUID, vitalType string) ([]HealthVital, error) {
	q := s.db.Scopes(session.ForOwner(userID))
	if vitalType != "" {
		if !IsKnownType(vitalType) {
			return nil, ErrUnknownType
		}
		q = q.Where("vital_type = ?", vitalType)
	}

	out := []HealthVital{}
	err := q.Order("recorded_at ASC").Order("created_at ASC").Find(&out).Error
	return out, err
}

func (s *VitalService) Delete(userID, id uuid.UUID) error {
	res := s.db.Scopes(session.ForOwner(userID)).Where("id = ?", id).Delete(&HealthVital{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVitalNotFound
	}
	return nil
}

// LoggedTypes returns the distinct vital types the user has recorded.
func (s *VitalService) LoggedTypes(userID uuid.UUID) ([]string, error) {
	types := []string{}
	err := s.db.Model(&HealthVital{}).
		Scopes(session.ForOwner(userID)).
		Distinct("vital_type").
		Order("vital_type ASC").
		Pluck("vital_type", &types).Error
	return types, err
}

// Trend builds chart series and a newest-first history for one type. The
// unit is taken from the earliest record.
func (s *VitalService) Trend(userID uuid.UUID, vitalType string) (*TrendResponse, error) {
	if !IsKnownType(vitalType) {
		return nil, ErrUnknownType
	}
	records, err := s.List(userID, vitalType)
	if err != nil {
		return nil, err
	}
	return buildTrend(vitalType, records), nil
}

func (s *VitalService) RecentlyLogged(userID uuid.UUID, limit int) ([]HealthVital, error) {
	var out []HealthVital
	err := s.db.Scopes(session.ForOwner(userID)).
		Order("recorded_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func buildTrend(vitalType string, records []HealthVital) *TrendResponse {
	resp := &TrendResponse{
		Type:    vitalType,
		Unit:    rules[vitalType].units[0],
		Series:  []TrendSeries{},
		History: make([]HistoryEntry, 0, len(records)),
	}
	if len(records) == 0 {
		return resp
	}
	resp.Unit = records[0].Unit

	if rules[vitalType].twoValues {
		sys := TrendSeries{Name: "Systolic"}
		dia := TrendSeries{Name: "Diastolic"}
		for _, r := range records {
			sys.Points = append(sys.Points, TrendPoint{At: r.RecordedAt, Value: r.Value1})
			if r.Value2 != nil {
				dia.Points = append(dia.Points, TrendPoint{At: r.RecordedAt, Value: *r.Value2})
			}
		}
		resp.Series = append(resp.Series, sys, dia)
	} else {
		series := TrendSeries{Name: vitalType}
		for _, r := range records {
			series.Points = append(series.Points, TrendPoint{At: r.RecordedAt, Value: r.Value1})
		}
		resp.Series = append(resp.Series, series)
	}

	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		resp.History = append(resp.History, HistoryEntry{ID: r.ID, RecordedAt: r.RecordedAt, Display: Display(r)})
	}
	return resp
}

// Display formats a reading the way the history table shows it.
func Display(v HealthVital) string {
	if v.VitalType == BloodPressure && v.Value2 != nil {
		return fmt.Sprintf("%d / %d %s", int(v.Value1), int(*v.Value2), v.Unit)
	}
	return strconv.FormatFloat(v.Value1, 'f', -1, 64) + " " + v.Unit
}

func parseRecorded(v string) (time.Time, error) {
	for _, layout := range recordedLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, ErrInvalidRecorded
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

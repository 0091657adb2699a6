package apphealth

import (
	"context"
	"fmt"
	"strings"

	"github.com/Erick-Marinho/Health-AI/internal/scheduling"
	"github.com/Erick-Marinho/Health-AI/pkg/logging"
)

// Directory implements scheduling.Directory on the APPHealth client.
type Directory struct {
	client *Client
	logger *logging.Logger
}

func NewDirectory(client *Client, logger *logging.Logger) *Directory {
	if client == nil {
		panic("apphealth: client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Directory{client: client, logger: logger}
}

var _ scheduling.Directory = (*Directory)(nil)

func (d *Directory) ListSpecialties(ctx context.Context) ([]scheduling.Specialty, error) {
	items, err := d.client.GetSpecialties(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]scheduling.Specialty, 0, len(items))
	for _, it := range items {
		name := strings.TrimSpace(it.Name)
		if it.ID == "" || name == "" {
			continue
		}
		out = append(out, scheduling.Specialty{ID: string(it.ID), Name: name})
	}
	return out, nil
}

func (d *Directory) ListProfessionals(ctx context.Context, specialtyID string, activeOnly bool) ([]scheduling.Professional, error) {
	items, err := d.client.GetProfessionals(ctx, specialtyID, activeOnly)
	if err != nil {
		return nil, err
	}
	out := make([]scheduling.Professional, 0, len(items))
	for _, it := range items {
		name := strings.TrimSpace(it.Name)
		if it.ID == "" || name == "" {
			continue
		}
		if activeOnly && it.Active != nil && !*it.Active {
			continue
		}
		out = append(out, scheduling.Professional{ID: string(it.ID), Name: name})
	}
	return out, nil
}

// ListAvailableDates returns YYYY-MM-DD dates. Malformed entries are dropped.
func (d *Directory) ListAvailableDates(ctx context.Context, professionalID string, month, year int) ([]string, error) {
	items, err := d.client.GetAvailableDates(ctx, professionalID, month, year)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		date := strings.TrimSpace(it.Date)
		if len(date) >= 10 {
			date = date[:10]
		}
		if !isISODate(date) {
			d.logger.Warn("apphealth returned malformed date", "professional_id", professionalID, "date", it.Date)
			continue
		}
		out = append(out, date)
	}
	return out, nil
}

func (d *Directory) ListAvailableTimes(ctx context.Context, professionalID, date string) ([]scheduling.TimeSlot, error) {
	items, err := d.client.GetAvailableTimes(ctx, professionalID, date)
	if err != nil {
		return nil, err
	}
	out := make([]scheduling.TimeSlot, 0, len(items))
	for _, it := range items {
		if strings.TrimSpace(it.Start) == "" {
			continue
		}
		out = append(out, scheduling.TimeSlot{Start: strings.TrimSpace(it.Start), End: strings.TrimSpace(it.End)})
	}
	return out, nil
}

func (d *Directory) CreateAppointment(ctx context.Context, req scheduling.AppointmentRequest) (scheduling.Appointment, error) {
	resp, err := d.client.CreateAppointment(ctx, AppointmentRequest{
		ProfessionalID: ID(req.ProfessionalID),
		SpecialtyID:    ID(req.SpecialtyID),
		UnitID:         ID(req.UnitID),
		Date:           req.Date,
		Start:          withSeconds(req.Start),
		End:            withSeconds(req.End),
		Patient:        Patient{Name: req.PatientName, Phone: req.Contact},
	})
	if err != nil {
		return scheduling.Appointment{}, err
	}
	d.logger.Info("apphealth appointment created",
		"appointment_id", string(resp.ID),
		"professional_id", req.ProfessionalID,
		"date", req.Date,
	)
	return scheduling.Appointment{ID: string(resp.ID)}, nil
}

func (d *Directory) ListUnits(ctx context.Context) ([]scheduling.Unit, error) {
	items, err := d.client.GetUnits(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]scheduling.Unit, 0, len(items))
	for _, it := range items {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			name = strings.TrimSpace(it.UnitName)
		}
		if name == "" {
			continue
		}
		out = append(out, scheduling.Unit{
			ID:      string(it.ID),
			Name:    name,
			Address: strings.TrimSpace(it.Address),
			Phone:   strings.TrimSpace(it.Phone),
		})
	}
	return out, nil
}

func isISODate(s string) bool {
	var y, m, d int
	if len(s) != 10 {
		return false
	}
	if _, err := fmt.Sscanf(s, "%4d-%2d-%2d", &y, &m, &d); err != nil {
		return false
	}
	return m >= 1 && m <= 12 && d >= 1 && d <= 31
}

// withSeconds turns HH:MM into the HH:MM:SS form the API stores.
func withSeconds(hhmm string) string {
	if len(hhmm) == 5 {
		return hhmm + ":00"
	}
	return hhmm
}

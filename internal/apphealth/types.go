// Package apphealth is the client for the APPHealth clinic scheduling API.
package apphealth

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// ID accepts both numeric and string identifiers from the API.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON writes numeric ids as numbers.
func (id ID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

type Specialty struct {
	ID   ID     `json:"id"`
	Name string `json:"especialidade"`
}

type Professional struct {
	ID     ID     `json:"id"`
	Name   string `json:"nome"`
	Active *bool  `json:"status,omitempty"`
}

type AvailableDate struct {
	Date string `json:"data"`
}

type AvailableTime struct {
	Start string `json:"horaInicio"`
	End   string `json:"horaFim"`
}

type Unit struct {
	ID       ID     `json:"id"`
	Name     string `json:"nome"`
	UnitName string `json:"nomeUnidade,omitempty"`
	Address  string `json:"endereco"`
	Phone    string `json:"telefone"`
}

type Patient struct {
	Name  string `json:"nome"`
	Phone string `json:"telefone,omitempty"`
}

// AppointmentRequest is the body of POST /agendamentos.
type AppointmentRequest struct {
	ProfessionalID ID      `json:"profissionalId"`
	SpecialtyID    ID      `json:"especialidadeId"`
	UnitID         ID      `json:"unidadeId,omitempty"`
	Date           string  `json:"data"`
	Start          string  `json:"horaInicio"`
	End            string  `json:"horaFim"`
	Patient        Patient `json:"paciente"`
}

type AppointmentResponse struct {
	ID      ID     `json:"id"`
	Message string `json:"mensagem,omitempty"`
}

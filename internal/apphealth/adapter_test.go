package apphealth

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestDirectory_FiltersMalformedEntries(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/especialidades":
			_, _ = w.Write([]byte(`[{"id":12,"especialidade":" Cardiologia "},{"id":null,"especialidade":"Sem id"},{"id":3,"especialidade":""}]`))
		case "/profissionais":
			_, _ = w.Write([]byte(`[{"id":101,"nome":"Dr. Paulo Mendes","status":true},{"id":102,"nome":"Dra. Inativa","status":false}]`))
		case "/agenda/profissionais/101/datas":
			_, _ = w.Write([]byte(`[{"data":"2025-05-02T00:00:00"},{"data":"02/05/2025"},{"data":"2025-05-06"}]`))
		case "/agenda/profissionais/101/horarios":
			_, _ = w.Write([]byte(`[{"horaInicio":"09:00:00","horaFim":"09:30:00"},{"horaInicio":"","horaFim":""}]`))
		case "/unidades":
			_, _ = w.Write([]byte(`[{"id":1,"nomeUnidade":"Unidade Centro","endereco":"Rua A, 10","telefone":"(11) 3333-0000"}]`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})
	dir := NewDirectory(client, nil)
	ctx := context.Background()

	specialties, err := dir.ListSpecialties(ctx)
	if err != nil || len(specialties) != 1 || specialties[0].Name != "Cardiologia" {
		t.Fatalf("specialties = %+v, err = %v", specialties, err)
	}

	professionals, err := dir.ListProfessionals(ctx, "12", true)
	if err != nil || len(professionals) != 1 || professionals[0].ID != "101" {
		t.Fatalf("professionals = %+v, err = %v", professionals, err)
	}

	dates, err := dir.ListAvailableDates(ctx, "101", 5, 2025)
	if err != nil || len(dates) != 2 || dates[0] != "2025-05-02" || dates[1] != "2025-05-06" {
		t.Fatalf("dates = %v, err = %v", dates, err)
	}

	times, err := dir.ListAvailableTimes(ctx, "101", "2025-05-02")
	if err != nil || len(times) != 1 || times[0].Start != "09:00:00" {
		t.Fatalf("times = %+v, err = %v", times, err)
	}

	units, err := dir.ListUnits(ctx)
	if err != nil || len(units) != 1 || units[0].Name != "Unidade Centro" || units[0].ID != "1" {
		t.Fatalf("units = %+v, err = %v", units, err)
	}
}

func TestCachedDirectory_ServesCatalogFromRedis(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`[{"id":12,"especialidade":"Cardiologia"}]`))
	})

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cached := NewCachedDirectory(NewDirectory(client, nil), rdb, time.Minute, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		items, err := cached.ListSpecialties(ctx)
		if err != nil {
			t.Fatalf("ListSpecialties() error = %v", err)
		}
		if len(items) != 1 || items[0].ID != "12" {
			t.Fatalf("items = %+v", items)
		}
	}
	if calls != 1 {
		t.Fatalf("api calls = %d, want 1", calls)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := cached.ListSpecialties(ctx); err != nil {
		t.Fatalf("ListSpecialties() after expiry error = %v", err)
	}
	if calls != 2 {
		t.Fatalf("api calls after expiry = %d, want 2", calls)
	}
}

package tui

import (
	"testing"

	"github.com/gophpeek/mlxhub/internal/hub"
)

func TestStatusToRowsNilStatus(t *testing.T) {
	if rows := statusToRows(nil); rows != nil {
		t.Errorf("expected nil rows for nil status, got %v", rows)
	}
}

func TestStatusToRowsSortsByName(t *testing.T) {
	st := &hub.Status{
		Models: []hub.ModelStatus{
			{Name: "zeta", Status: "running"},
			{Name: "alpha", Status: "stopped"},
		},
	}

	rows := statusToRows(st)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "alpha" || rows[1][0] != "zeta" {
		t.Errorf("expected rows sorted by name, got %v then %v", rows[0][0], rows[1][0])
	}
}

func TestStatusToRowsOmitsPIDAndUptimeWhenZero(t *testing.T) {
	st := &hub.Status{
		Models: []hub.ModelStatus{
			{Name: "solo", Status: "stopped", PID: 0, UptimeSeconds: 0},
		},
	}

	rows := statusToRows(st)
	if rows[0][3] != "" {
		t.Errorf("expected empty PID column, got %q", rows[0][3])
	}
	if rows[0][4] != "" {
		t.Errorf("expected empty uptime column, got %q", rows[0][4])
	}
}

func TestStatusToRowsFormatsPIDAndUptime(t *testing.T) {
	st := &hub.Status{
		Models: []hub.ModelStatus{
			{Name: "solo", Status: "running", PID: 4242, UptimeSeconds: 125, Group: "g1", LastError: "oops"},
		},
	}

	rows := statusToRows(st)
	row := rows[0]
	if row[3] != "4242" {
		t.Errorf("expected PID column 4242, got %q", row[3])
	}
	if row[2] != "g1" {
		t.Errorf("expected group column g1, got %q", row[2])
	}
	if row[5] != "oops" {
		t.Errorf("expected last error column oops, got %q", row[5])
	}
	if row[4] != "2m5s" {
		t.Errorf("expected uptime 2m5s, got %q", row[4])
	}
}

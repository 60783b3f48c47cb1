package console

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"sovdscope/internal/sovd"
)

func TestApplyFaultReconciles(t *testing.T) {
	m := newMockServer(t)
	m.set("GET /areas", `[]`)
	m.set("GET /faults", `{"items":[
		{"code":"E_OVERHEAT","entity_id":"controller","severity":"warning","status":"active","message":"warm"},
		{"code":"E_LOW_BATTERY","entity_id":"base","severity":"info","status":"active"}
	]}`)

	c, notifier := newConnectedConsole(t, m)
	if len(c.Faults()) != 2 {
		t.Fatalf("initial faults = %d, want 2", len(c.Faults()))
	}

	// Same code and entity: replace in place, list length unchanged
	c.ApplyFault(sovd.Fault{
		Code: "E_OVERHEAT", EntityID: "controller",
		Severity: sovd.SeverityError, Status: sovd.FaultActive, Message: "hot", Count: 3,
	})
	faults := c.Faults()
	if len(faults) != 2 {
		t.Fatalf("faults after replace = %d, want 2", len(faults))
	}
	if faults[0].Message != "hot" || faults[0].Count != 3 {
		t.Errorf("entry not replaced in place: %+v", faults[0])
	}

	// Same code on a different entity is a distinct entry
	c.ApplyFault(sovd.Fault{Code: "E_OVERHEAT", EntityID: "base", Severity: sovd.SeverityWarning, Status: sovd.FaultActive})
	if len(c.Faults()) != 3 {
		t.Fatalf("faults after append = %d, want 3", len(c.Faults()))
	}

	// A new critical fault raises an error notification
	before := notifier.count()
	c.ApplyFault(sovd.Fault{Code: "E_ESTOP", EntityID: "base", Severity: sovd.SeverityCritical, Status: sovd.FaultActive, Message: "emergency stop"})
	if notifier.count() != before+1 {
		t.Error("critical fault did not raise a notification")
	}

	// Replacing that same critical fault again does not re-notify
	before = notifier.count()
	c.ApplyFault(sovd.Fault{Code: "E_ESTOP", EntityID: "base", Severity: sovd.SeverityCritical, Status: sovd.FaultActive, Count: 2})
	if notifier.count() != before {
		t.Error("replacing an existing fault re-notified")
	}
}

func TestClearFaultMarksLocalEntry(t *testing.T) {
	m := newMockServer(t)
	m.set("GET /areas", `[]`)
	m.set("GET /faults", `[{"code":"E_OVERHEAT","entity_id":"controller","severity":"warning","status":"active"}]`)
	m.set("DELETE /apps/controller/faults/E_OVERHEAT", `{}`)

	c, _ := newConnectedConsole(t, m)

	if err := c.ClearFault(context.Background(), sovd.CollectionApps, "controller", "E_OVERHEAT"); err != nil {
		t.Fatalf("ClearFault failed: %v", err)
	}
	if got := m.count("DELETE /apps/controller/faults/E_OVERHEAT"); got != 1 {
		t.Errorf("clear called %d times", got)
	}

	faults := c.Faults()
	if len(faults) != 1 || faults[0].Status != sovd.FaultCleared {
		t.Errorf("local entry = %+v, want cleared", faults)
	}
}

func TestClearAllFaultsReloads(t *testing.T) {
	m := newMockServer(t)
	m.set("GET /areas", `[]`)
	m.set("GET /faults", `[{"code":"E_OVERHEAT","entity_id":"controller","severity":"warning","status":"active"}]`)
	m.set("DELETE /apps/controller/faults", `{}`)

	c, _ := newConnectedConsole(t, m)

	m.set("GET /faults", `[]`)
	if err := c.ClearAllFaults(context.Background(), sovd.CollectionApps, "controller"); err != nil {
		t.Fatalf("ClearAllFaults failed: %v", err)
	}
	if len(c.Faults()) != 0 {
		t.Errorf("faults not reloaded after clear-all: %+v", c.Faults())
	}
}

func TestFaultStreamAppliesEvents(t *testing.T) {
	m := newMockServer(t)
	m.set("GET /areas", `[]`)
	m.handleFunc("GET /faults/stream", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		var b strings.Builder
		b.WriteString("event: fault\ndata: {\"code\":\"E_OVERHEAT\",\"entity_id\":\"controller\",\"severity\":\"warning\",\"status\":\"active\"}\n\n")
		b.WriteString("data: this is not json\n\n")
		b.WriteString("event: heartbeat\ndata: {}\n\n")
		b.WriteString("event: fault\ndata: {\"code\":\"E_ESTOP\",\"entity_id\":\"base\",\"severity\":\"critical\",\"status\":\"active\",\"message\":\"emergency stop\"}\n\n")
		fmt.Fprint(w, b.String())
	})

	c, notifier := newConnectedConsole(t, m)

	// Both well-formed events arrive; the malformed line and the heartbeat
	// are dropped without killing the stream
	waitFor(t, "stream events", func() bool { return len(c.Faults()) == 2 })

	codes := map[string]bool{}
	for _, f := range c.Faults() {
		codes[f.Code] = true
	}
	if !codes["E_OVERHEAT"] || !codes["E_ESTOP"] {
		t.Errorf("fault codes = %v", codes)
	}

	// The critical event surfaced a notification
	waitFor(t, "critical notification", func() bool { return notifier.count() >= 1 })
}

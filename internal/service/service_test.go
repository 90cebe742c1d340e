package service

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"pijuice-service/internal/archive"
	"pijuice-service/internal/config"
	"pijuice-service/internal/engine"
	"pijuice-service/internal/pijuice"
)

// fakeDevice returns canned envelopes per accessor.
type fakeDevice struct {
	envelopes map[string]pijuice.Envelope
}

func (d *fakeDevice) env(name string) pijuice.Envelope {
	if e, ok := d.envelopes[name]; ok {
		return e
	}
	return pijuice.Envelope{Error: pijuice.CommunicationError}
}

func (d *fakeDevice) Status() pijuice.Envelope             { return d.env("status") }
func (d *fakeDevice) ChargeLevel() pijuice.Envelope        { return d.env("charge_level") }
func (d *fakeDevice) FaultStatus() pijuice.Envelope        { return d.env("fault_status") }
func (d *fakeDevice) BatteryTemperature() pijuice.Envelope { return d.env("batt_temperature") }
func (d *fakeDevice) BatteryVoltage() pijuice.Envelope     { return d.env("batt_voltage") }
func (d *fakeDevice) BatteryCurrent() pijuice.Envelope     { return d.env("batt_current") }
func (d *fakeDevice) IoVoltage() pijuice.Envelope          { return d.env("io_voltage") }
func (d *fakeDevice) IoCurrent() pijuice.Envelope          { return d.env("io_current") }
func (d *fakeDevice) Time() pijuice.Envelope               { return d.env("time") }

func healthyDevice() *fakeDevice {
	return &fakeDevice{envelopes: map[string]pijuice.Envelope{
		"charge_level":     {Error: pijuice.NoError, Data: 87},
		"batt_temperature": {Error: pijuice.NoError, Data: 31},
		"batt_voltage":     {Error: pijuice.NoError, Data: 4050},
		"batt_current":     {Error: pijuice.NoError, Data: -250},
		"io_voltage":       {Error: pijuice.NoError, Data: 5100},
		"io_current":       {Error: pijuice.NoError, Data: 420},
	}}
}

func newTestService(t *testing.T, cfg config.PiJuice, dev pijuice.Device, store *archive.Store) *Service {
	t.Helper()
	if cfg.Address == "" {
		cfg.Address = "0x14"
	}
	s, err := New(cfg, dev, store, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func TestLoopPacketMerge(t *testing.T) {
	s := newTestService(t, config.PiJuice{UpdateInterval: 20}, healthyDevice(), nil)
	now := int64(1627946400)
	s.now = func() int64 { return now }

	rec := engine.Record{"dateTime": now}
	s.onLoopPacket(engine.Event{Kind: engine.NewLoopPacket, Record: rec})

	if rec["ups_charge"] != 87.0 {
		t.Fatalf("expected ups_charge 87, got %v", rec["ups_charge"])
	}
	if rec["ups_voltage"] != 4.05 {
		t.Fatalf("expected ups_voltage 4.05, got %v", rec["ups_voltage"])
	}
	if rec["ups_current"] != -0.25 {
		t.Fatalf("expected ups_current -0.25, got %v", rec["ups_current"])
	}
	if rec["ups_temperature"] != 31.0 {
		t.Fatalf("expected ups_temperature 31, got %v", rec["ups_temperature"])
	}
}

func TestGateThrottlesEvents(t *testing.T) {
	s := newTestService(t, config.PiJuice{UpdateInterval: 20}, healthyDevice(), nil)
	now := int64(1627946400)
	s.now = func() int64 { return now }

	first := engine.Record{}
	s.onLoopPacket(engine.Event{Record: first})
	if _, ok := first["ups_charge"]; !ok {
		t.Fatal("first event should poll")
	}

	now += 5
	second := engine.Record{}
	s.onLoopPacket(engine.Event{Record: second})
	if _, ok := second["ups_charge"]; ok {
		t.Fatal("second event inside the interval should not poll")
	}

	now += 15
	third := engine.Record{}
	s.onLoopPacket(engine.Event{Record: third})
	if _, ok := third["ups_charge"]; !ok {
		t.Fatal("event at the interval boundary should poll")
	}
}

func TestPerFieldErrorsAreSkipped(t *testing.T) {
	dev := healthyDevice()
	dev.envelopes["batt_voltage"] = pijuice.Envelope{Error: pijuice.CommunicationError}
	s := newTestService(t, config.PiJuice{UpdateInterval: 20}, dev, nil)
	s.now = func() int64 { return 1627946400 }

	rec := engine.Record{}
	s.onLoopPacket(engine.Event{Record: rec})
	if _, ok := rec["ups_voltage"]; ok {
		t.Fatal("failed field should be omitted")
	}
	if rec["ups_charge"] != 87.0 {
		t.Fatal("other fields should still merge")
	}
}

func TestFailedPollStillThrottles(t *testing.T) {
	dev := &fakeDevice{envelopes: map[string]pijuice.Envelope{}} // every read fails
	s := newTestService(t, config.PiJuice{UpdateInterval: 20}, dev, nil)
	now := int64(1627946400)
	s.now = func() int64 { return now }

	s.onLoopPacket(engine.Event{Record: engine.Record{}})
	if last, ok := s.gate.LastPolled(); !ok || last != now {
		t.Fatal("failed poll should still mark the gate")
	}
}

func TestUnknownSourceSkipped(t *testing.T) {
	cfg := config.PiJuice{
		UpdateInterval:     20,
		FieldMapExtensions: map[string]string{"ups_wakeups": "wakeup_count"},
	}
	s := newTestService(t, cfg, healthyDevice(), nil)
	s.now = func() int64 { return 1627946400 }

	rec := engine.Record{}
	s.onLoopPacket(engine.Event{Record: rec})
	if _, ok := rec["ups_wakeups"]; ok {
		t.Fatal("field without accessor should be skipped")
	}
	if rec["ups_charge"] != 87.0 {
		t.Fatal("mapped fields should still merge")
	}
}

func TestExtensionOverridesDefaultOutput(t *testing.T) {
	cfg := config.PiJuice{
		UpdateInterval:     20,
		FieldMapExtensions: map[string]string{"batt_volts": "batt_voltage"},
	}
	s := newTestService(t, cfg, healthyDevice(), nil)
	s.now = func() int64 { return 1627946400 }

	rec := engine.Record{}
	s.onLoopPacket(engine.Event{Record: rec})
	if _, ok := rec["ups_voltage"]; ok {
		t.Fatal("ups_voltage should have been displaced by the extension")
	}
	if rec["batt_volts"] != 4.05 {
		t.Fatalf("expected batt_volts 4.05, got %v", rec["batt_volts"])
	}
}

func TestArchiveRecordPersisted(t *testing.T) {
	store, err := archive.Open(filepath.Join(t.TempDir(), "ups_test.sqlite"))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer store.Close()

	dev := healthyDevice()
	dev.envelopes["io_current"] = pijuice.Envelope{Error: pijuice.DataCorrupted}
	s := newTestService(t, config.PiJuice{UpdateInterval: 20}, dev, store)

	rec := engine.Record{"dateTime": int64(1627946400), "usUnits": 16, "interval": 5}
	s.onArchiveRecord(engine.Event{Kind: engine.NewArchiveRecord, Record: rec})

	rows, err := store.Latest(context.Background(), 1)
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	row := rows[0]
	if row.DateTime != 1627946400 || row.UsUnits != 16 || row.Interval != 5 {
		t.Fatalf("unexpected stamp columns: %+v", row)
	}
	if row.UpsVoltage == nil || *row.UpsVoltage != 4.05 {
		t.Fatalf("unexpected voltage: %v", row.UpsVoltage)
	}
	if row.UpsIoCurrent != nil {
		t.Fatal("errored reading should persist as NULL")
	}
}

func TestMalformedAddressAbortsConstruction(t *testing.T) {
	_, err := New(config.PiJuice{Address: "garbage"}, healthyDevice(), nil, zap.NewNop().Sugar())
	if err == nil {
		t.Fatal("expected construction to fail on malformed address")
	}
}

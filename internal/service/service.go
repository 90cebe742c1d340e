// Package service wires the PiJuice readings into the host's event stream:
// on every loop packet the poll gate decides whether the hardware is due, and
// if so the resolved field map drives which accessors are read and merged
// into the packet. An optional secondary path persists one row of readings
// per archive cycle.
package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"pijuice-service/internal/archive"
	"pijuice-service/internal/config"
	"pijuice-service/internal/engine"
	"pijuice-service/internal/fieldmap"
	"pijuice-service/internal/gate"
	"pijuice-service/internal/pijuice"
)

// accessor pairs a Device read with the divisor that converts its native
// units (milli-units for voltages and currents) to target units.
type accessor struct {
	read func(pijuice.Device) pijuice.Envelope
	div  float64
}

var accessors = map[string]accessor{
	"batt_temperature": {func(d pijuice.Device) pijuice.Envelope { return d.BatteryTemperature() }, 0},
	"charge_level":     {func(d pijuice.Device) pijuice.Envelope { return d.ChargeLevel() }, 0},
	"batt_voltage":     {func(d pijuice.Device) pijuice.Envelope { return d.BatteryVoltage() }, 1000},
	"batt_current":     {func(d pijuice.Device) pijuice.Envelope { return d.BatteryCurrent() }, 1000},
	"io_voltage":       {func(d pijuice.Device) pijuice.Envelope { return d.IoVoltage() }, 1000},
	"io_current":       {func(d pijuice.Device) pijuice.Envelope { return d.IoCurrent() }, 1000},
}

// Service polls the UPS and amends host records.
type Service struct {
	dev    pijuice.Device
	store  *archive.Store
	gate   *gate.Gate
	fields map[string]string
	order  []string
	log    *zap.SugaredLogger
	now    func() int64
}

// New builds the service from its config section. store may be nil when the
// secondary persistence path is disabled. A malformed address aborts this
// component only; the caller logs and continues without it.
func New(cfg config.PiJuice, dev pijuice.Device, store *archive.Store, log *zap.SugaredLogger) (*Service, error) {
	if _, err := cfg.DeviceAddress(); err != nil {
		return nil, err
	}
	fields := fieldmap.Resolve(cfg.FieldMap, cfg.FieldMapExtensions)
	order := make([]string, 0, len(fields))
	for out := range fields {
		order = append(order, out)
	}
	sort.Strings(order)
	for _, out := range order {
		if !fieldmap.KnownSource(fields[out]) {
			log.Warnw("field map entry has no matching accessor, it will be skipped",
				"field", out, "source", fields[out])
		}
	}
	return &Service{
		dev:    dev,
		store:  store,
		gate:   gate.New(cfg.UpdateInterval),
		fields: fields,
		order:  order,
		log:    log,
		now:    func() int64 { return time.Now().Unix() },
	}, nil
}

// Bind registers the service on the host's lifecycle events.
func (s *Service) Bind(e *engine.Engine) {
	e.Bind(engine.NewLoopPacket, s.onLoopPacket)
	e.Bind(engine.NewArchiveRecord, s.onArchiveRecord)
}

// FieldMap returns a copy of the resolved field map.
func (s *Service) FieldMap() map[string]string {
	m := make(map[string]string, len(s.fields))
	for k, v := range s.fields {
		m[k] = v
	}
	return m
}

func (s *Service) onLoopPacket(ev engine.Event) {
	now := s.now()
	if !s.gate.ShouldPoll(now) {
		return
	}
	n := s.poll(ev.Record)
	s.gate.MarkPolled(now)
	s.log.Debugw("pijuice poll", "fields", n)
}

// poll reads every mapped field and merges successes into rec. Per-field
// errors are logged and skipped; they never abort the cycle.
func (s *Service) poll(rec engine.Record) int {
	n := 0
	for _, out := range s.order {
		src := s.fields[out]
		acc, ok := accessors[src]
		if !ok {
			s.log.Debugw("skipping field with no accessor", "field", out, "source", src)
			continue
		}
		v, err := pijuice.Normalize(acc.read(s.dev), acc.div)
		if err != nil {
			s.log.Debugw("read failed", "source", src, "error", err)
			continue
		}
		rec[out] = v
		n++
	}
	return n
}

// onArchiveRecord runs the secondary path: a fresh poll of the fixed archive
// schema, persisted against the record's timestamp columns.
func (s *Service) onArchiveRecord(ev engine.Event) {
	if s.store == nil {
		return
	}
	row := archive.UpsRecord{
		DateTime: asInt64(ev.Record["dateTime"]),
		UsUnits:  asInt(ev.Record["usUnits"]),
		Interval: asInt(ev.Record["interval"]),
	}
	for out, src := range fieldmap.Default() {
		acc, ok := accessors[src]
		if !ok {
			continue
		}
		v, err := pijuice.Normalize(acc.read(s.dev), acc.div)
		if err != nil {
			s.log.Debugw("archive read failed", "source", src, "error", err)
			continue
		}
		vv := v
		switch out {
		case "ups_temperature":
			row.UpsTemperature = &vv
		case "ups_charge":
			row.UpsCharge = &vv
		case "ups_voltage":
			row.UpsVoltage = &vv
		case "ups_current":
			row.UpsCurrent = &vv
		case "ups_io_voltage":
			row.UpsIoVoltage = &vv
		case "ups_io_current":
			row.UpsIoCurrent = &vv
		}
	}
	if err := s.store.Save(context.Background(), &row); err != nil {
		s.log.Errorw("archive save failed", "dateTime", row.DateTime, "error", err)
	}
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	}
	return 0
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	}
	return 0
}

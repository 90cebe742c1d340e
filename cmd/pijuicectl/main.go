package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"sort"
	"time"

	"pijuice-service/internal/archive"
	cfgpkg "pijuice-service/internal/config"
	"pijuice-service/internal/fieldmap"
	"pijuice-service/internal/pijuice"
)

const serviceVersion = "0.1.0"

func main() {
	var (
		cfgPath string
		bus     int
		address string
		raw     bool
		version bool
		status  bool
		fault   bool
		battery bool
		input   bool
		rtc     bool
		showMap bool
		history int
	)
	flag.StringVar(&cfgPath, "config", "", "path to YAML config (optional)")
	flag.IntVar(&bus, "bus", 0, "I2C bus override")
	flag.StringVar(&address, "address", "", "device address override (decimal or 0x hex)")
	flag.BoolVar(&raw, "raw", false, "print raw vendor codes instead of formatted output")
	flag.BoolVar(&version, "version", false, "display service version")
	flag.BoolVar(&status, "status", false, "display PiJuice status")
	flag.BoolVar(&fault, "fault", false, "display PiJuice fault status")
	flag.BoolVar(&battery, "battery", false, "display battery summary")
	flag.BoolVar(&input, "input", false, "display input summary")
	flag.BoolVar(&rtc, "rtc", false, "display the real-time clock reading")
	flag.BoolVar(&showMap, "map", false, "display the active field map")
	flag.IntVar(&history, "history", 0, "display the N most recent archive rows")
	flag.Parse()

	if version {
		fmt.Printf("pijuice service version: %s\n", serviceVersion)
		return
	}

	cfg := cfgpkg.Default()
	if cfgPath != "" {
		var err error
		cfg, err = cfgpkg.LoadYAML(cfgPath)
		if err != nil {
			log.Fatalf("load yaml config: %v", err)
		}
	}
	if bus > 0 {
		cfg.PiJuice.Bus = bus
	}
	if address != "" {
		cfg.PiJuice.Address = address
	}

	if showMap {
		printMap(cfg)
		return
	}
	if history > 0 {
		printHistory(cfg, history)
		return
	}

	if status || fault || battery || input || rtc {
		addr, err := cfg.PiJuice.DeviceAddress()
		if err != nil {
			log.Fatalf("%v", err)
		}
		hat, err := pijuice.Open(cfg.PiJuice.Bus, addr)
		if err != nil {
			log.Fatalf("open pijuice: %v", err)
		}
		defer hat.Close()

		switch {
		case status:
			printStatus(hat, raw)
		case fault:
			printFault(hat, raw)
		case battery:
			printBattery(hat, raw)
		case input:
			printInput(hat, raw)
		case rtc:
			printRTC(hat, raw)
		}
		return
	}

	flag.Usage()
}

// renderValue normalises an envelope for display; errors print inline in
// place of the value.
func renderValue(env pijuice.Envelope, div float64, unit string, raw bool) string {
	v, err := pijuice.Normalize(env, div)
	if err != nil {
		var ce *pijuice.CodeError
		if errors.As(err, &ce) {
			return pijuice.FormatError(ce.Code, raw)
		}
		return err.Error()
	}
	if raw || unit == "" {
		return fmt.Sprintf("%g", v)
	}
	return fmt.Sprintf("%g %s", v, unit)
}

func printStatus(dev pijuice.Device, raw bool) {
	env := dev.Status()
	if env.Error != pijuice.NoError {
		fmt.Printf("PiJuice status: %s\n", pijuice.FormatError(env.Error, raw))
		return
	}
	st := env.Data.(pijuice.Status)
	fmt.Println("PiJuice status:")
	fmt.Printf("  battery:     %s\n", pijuice.FormatStatus(st.BatteryStatus, raw))
	fmt.Printf("  power input: %s\n", pijuice.FormatStatus(st.PowerInput, raw))
	fmt.Printf("  5V IO input: %s\n", pijuice.FormatStatus(st.PowerInput5vIo, raw))
	fmt.Printf("  fault:       %t\n", st.IsFault)
	fmt.Printf("  button:      %t\n", st.IsButton)
}

func printFault(dev pijuice.Device, raw bool) {
	env := dev.FaultStatus()
	if env.Error != pijuice.NoError {
		fmt.Printf("PiJuice fault status: %s\n", pijuice.FormatError(env.Error, raw))
		return
	}
	f := env.Data.(pijuice.FaultStatus)
	fmt.Println("PiJuice fault status:")
	fmt.Printf("  button power off:        %t\n", f.ButtonPowerOff)
	fmt.Printf("  forced power off:        %t\n", f.ForcedPowerOff)
	fmt.Printf("  forced sys power off:    %t\n", f.ForcedSysPowerOff)
	fmt.Printf("  watchdog reset:          %t\n", f.WatchdogReset)
	fmt.Printf("  battery profile invalid: %t\n", f.BatteryProfileInvalid)
	fmt.Printf("  charging temperature:    %s\n", pijuice.FormatStatus(f.ChargingTemperatureFault, raw))
}

func printBattery(dev pijuice.Device, raw bool) {
	fmt.Println("PiJuice battery:")
	fmt.Printf("  charge:      %s\n", renderValue(dev.ChargeLevel(), 0, "%", raw))
	fmt.Printf("  voltage:     %s\n", renderValue(dev.BatteryVoltage(), 1000, "V", raw))
	fmt.Printf("  current:     %s\n", renderValue(dev.BatteryCurrent(), 1000, "A", raw))
	fmt.Printf("  temperature: %s\n", renderValue(dev.BatteryTemperature(), 0, "C", raw))
}

func printInput(dev pijuice.Device, raw bool) {
	fmt.Println("PiJuice input:")
	fmt.Printf("  io voltage: %s\n", renderValue(dev.IoVoltage(), 1000, "V", raw))
	fmt.Printf("  io current: %s\n", renderValue(dev.IoCurrent(), 1000, "A", raw))
	env := dev.Status()
	if env.Error != pijuice.NoError {
		fmt.Printf("  power input: %s\n", pijuice.FormatError(env.Error, raw))
		return
	}
	st := env.Data.(pijuice.Status)
	fmt.Printf("  power input: %s\n", pijuice.FormatStatus(st.PowerInput, raw))
	fmt.Printf("  5V IO input: %s\n", pijuice.FormatStatus(st.PowerInput5vIo, raw))
}

func printRTC(dev pijuice.Device, raw bool) {
	env := dev.Time()
	if env.Error != pijuice.NoError {
		fmt.Printf("PiJuice RTC: %s\n", pijuice.FormatError(env.Error, raw))
		return
	}
	ct := env.Data.(pijuice.ClockTime)
	fmt.Printf("PiJuice RTC: %04d-%02d-%02d %02d:%02d:%02d\n",
		ct.Year, ct.Month, ct.Day, ct.Hour, ct.Minute, ct.Second)
}

func printMap(cfg cfgpkg.Root) {
	m := fieldmap.Resolve(cfg.PiJuice.FieldMap, cfg.PiJuice.FieldMapExtensions)
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Println("Active field map (output <- source):")
	for _, k := range keys {
		note := ""
		if !fieldmap.KnownSource(m[k]) {
			note = "  (no accessor)"
		}
		fmt.Printf("  %s <- %s%s\n", k, m[k], note)
	}
}

func printHistory(cfg cfgpkg.Root, n int) {
	store, err := archive.Open(cfg.Archive.DBPath)
	if err != nil {
		log.Fatalf("open archive %s: %v", cfg.Archive.DBPath, err)
	}
	defer store.Close()

	rows, err := store.Latest(context.Background(), n)
	if err != nil {
		log.Fatalf("read archive: %v", err)
	}
	for _, r := range rows {
		fmt.Printf("%s charge=%s voltage=%s current=%s temp=%s io_voltage=%s io_current=%s\n",
			time.Unix(r.DateTime, 0).Format(time.RFC3339),
			fmtPtr(r.UpsCharge), fmtPtr(r.UpsVoltage), fmtPtr(r.UpsCurrent),
			fmtPtr(r.UpsTemperature), fmtPtr(r.UpsIoVoltage), fmtPtr(r.UpsIoCurrent))
	}
}

func fmtPtr(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%g", *v)
}

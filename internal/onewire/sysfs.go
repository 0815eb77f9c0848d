// Package onewire talks to 1-Wire devices through the Linux w1 subsystem
// (w1-gpio + w1-therm). Conversion is started with a bulk trigger and the
// scratchpad is collected on a later call, so no read blocks for the
// 750ms conversion time.
package onewire

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sweeney/aquaponics-monitor/internal/sensor"
)

// DefaultRoot is where the kernel exposes w1 slaves.
const DefaultRoot = "/sys/bus/w1/devices"

// DefaultMaster is the first bus master created by w1-gpio.
const DefaultMaster = "w1_bus_master1"

var slaveName = regexp.MustCompile(`^[0-9a-f]{2}-[0-9a-f]{12}$`)

// Bus is a sysfs-backed 1-Wire master.
type Bus struct {
	root   string
	master string
	dirs   map[sensor.ROM]string
}

// NewBus returns a bus rooted at root (DefaultRoot on a Pi).
func NewBus(root, master string) *Bus {
	if root == "" {
		root = DefaultRoot
	}
	if master == "" {
		master = DefaultMaster
	}
	return &Bus{root: root, master: master, dirs: make(map[sensor.ROM]string)}
}

// Devices lists the ROM codes of all slaves, read from each slave's id file.
func (b *Bus) Devices() ([]sensor.ROM, error) {
	entries, err := os.ReadDir(b.root)
	if err != nil {
		return nil, fmt.Errorf("list w1 devices: %w", err)
	}
	var roms []sensor.ROM
	for _, e := range entries {
		if !slaveName.MatchString(e.Name()) {
			continue
		}
		id, err := os.ReadFile(filepath.Join(b.root, e.Name(), "id"))
		if err != nil {
			return nil, fmt.Errorf("read id of %s: %w", e.Name(), err)
		}
		if len(id) != 8 {
			return nil, fmt.Errorf("id of %s: got %d bytes, want 8", e.Name(), len(id))
		}
		var rom sensor.ROM
		copy(rom[:], id)
		b.dirs[rom] = e.Name()
		roms = append(roms, rom)
	}
	return roms, nil
}

// Convert triggers a temperature conversion on every sensor of the master.
func (b *Bus) Convert(rom sensor.ROM) error {
	path := filepath.Join(b.root, b.master, "therm_bulk_read")
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("trigger conversion: %w", err)
	}
	if _, err := f.WriteString("trigger\n"); err != nil {
		f.Close()
		return fmt.Errorf("trigger conversion: %w", err)
	}
	return f.Close()
}

// ReadScratchpad returns the nine scratchpad bytes as reported by w1-therm.
// The kernel's own CRC verdict is ignored; callers check byte 8 themselves.
func (b *Bus) ReadScratchpad(rom sensor.ROM) ([9]byte, error) {
	dir, ok := b.dirs[rom]
	if !ok {
		dir = rom.String()
	}
	f, err := os.Open(filepath.Join(b.root, dir, "w1_slave"))
	if err != nil {
		return [9]byte{}, fmt.Errorf("open w1_slave: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return [9]byte{}, fmt.Errorf("read w1_slave: %w", err)
		}
		return [9]byte{}, fmt.Errorf("read w1_slave: empty")
	}
	return ParseScratchpad(sc.Text())
}

// ParseScratchpad parses the first line of w1_slave, e.g.
// "90 01 4b 46 7f ff 0c 10 1c : crc=1c YES".
func ParseScratchpad(line string) ([9]byte, error) {
	var sp [9]byte
	head, _, _ := strings.Cut(line, ":")
	fields := strings.Fields(head)
	if len(fields) != 9 {
		return sp, fmt.Errorf("scratchpad: got %d bytes, want 9", len(fields))
	}
	for i, f := range fields {
		b, err := hex.DecodeString(f)
		if err != nil || len(b) != 1 {
			return sp, fmt.Errorf("scratchpad byte %d %q: invalid hex", i, f)
		}
		sp[i] = b[0]
	}
	return sp, nil
}

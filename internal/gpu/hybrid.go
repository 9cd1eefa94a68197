package gpu

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/jaypipes/pcidb"
	"github.com/vivekchamoli/legion2go/internal/util"
)

const (
	PciDevicesPath = "/sys/bus/pci/devices"

	nvidiaVendorId = "10de"
	// PCI base class of display controllers
	displayClassPrefix = "03"
)

// PciDevice is an NVIDIA display controller found on the PCI bus
type PciDevice struct {
	Address  string `json:"address"`
	VendorId string `json:"vendorId"`
	DeviceId string `json:"deviceId"`
	Class    string `json:"class"`
	Name     string `json:"name,omitempty"`
}

// FindNvidiaDevices lists NVIDIA display controllers below the given sysfs path.
// It does not touch the NVIDIA driver, so a powered down dGPU stays powered down.
func FindNvidiaDevices(devicesPath string) ([]PciDevice, error) {
	entries, err := os.ReadDir(devicesPath)
	if err != nil {
		return nil, fmt.Errorf("read pci devices: %w", err)
	}

	var result []PciDevice
	for _, entry := range entries {
		devicePath := filepath.Join(devicesPath, entry.Name())
		vendor, err := util.ReadStringFromFile(filepath.Join(devicePath, "vendor"))
		if err != nil || normalizePciId(vendor) != nvidiaVendorId {
			continue
		}
		class, err := util.ReadStringFromFile(filepath.Join(devicePath, "class"))
		if err != nil {
			continue
		}
		class = normalizePciId(class)
		if !strings.HasPrefix(class, displayClassPrefix) {
			continue
		}
		device, _ := util.ReadStringFromFile(filepath.Join(devicePath, "device"))

		result = append(result, PciDevice{
			Address:  entry.Name(),
			VendorId: nvidiaVendorId,
			DeviceId: normalizePciId(device),
			Class:    class,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Address < result[j].Address
	})
	return result, nil
}

// SysfsCapabilityProbe reports a dGPU if an NVIDIA display controller is on the PCI bus
type SysfsCapabilityProbe struct {
	DevicesPath string
}

func NewSysfsCapabilityProbe(devicesPath string) *SysfsCapabilityProbe {
	if devicesPath == "" {
		devicesPath = PciDevicesPath
	}
	return &SysfsCapabilityProbe{DevicesPath: devicesPath}
}

func (p *SysfsCapabilityProbe) Probe() (bool, error) {
	devices, err := FindNvidiaDevices(p.DevicesPath)
	if err != nil {
		return false, err
	}
	return len(devices) > 0, nil
}

var (
	pciOnce sync.Once
	pciDb   *pcidb.PCIDB
	pciErr  error
)

func loadPciDatabase() *pcidb.PCIDB {
	pciOnce.Do(func() {
		pciDb, pciErr = pcidb.New()
	})
	if pciErr != nil {
		return nil
	}
	return pciDb
}

// ResolveNames fills in product names from the local pci.ids database, if available
func ResolveNames(devices []PciDevice) []PciDevice {
	db := loadPciDatabase()
	if db == nil {
		return devices
	}
	result := make([]PciDevice, len(devices))
	for i, device := range devices {
		result[i] = device
		if product, ok := db.Products[device.VendorId+device.DeviceId]; ok && product != nil {
			result[i].Name = product.Name
		}
	}
	return result
}

func normalizePciId(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	return strings.TrimPrefix(value, "0x")
}

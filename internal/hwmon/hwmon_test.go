package hwmon

import (
	"testing"

	"github.com/md14454/gosensors"
	"github.com/stretchr/testify/assert"
)

func TestComputeIdentifierIsa(t *testing.T) {
	// GIVEN
	c := gosensors.Chip{
		Prefix: "ucsi_source_psy_USBC000:002",
		Addr:   0x0f1,
		Bus: gosensors.Bus{
			Type: BusTypeIsa,
			Nr:   1,
		},
		Path: "/sys/class/hwmon/hwmon7",
	}

	// WHEN
	result := computeIdentifier(c)

	// THEN
	assert.Equal(t, "ucsi_source_psy_USBC000:002-isa-10f1", result)
}

func TestComputeIdentifierPci(t *testing.T) {
	// GIVEN
	c := gosensors.Chip{
		Prefix: "nvme",
		Addr:   0x5,
		Bus: gosensors.Bus{
			Type: BusTypePci,
			Nr:   1,
		},
		Path: "/sys/class/hwmon/hwmon4",
	}

	// WHEN
	result := computeIdentifier(c)

	// THEN
	assert.Equal(t, "nvme-pci-1005", result)
}

func TestComputeIdentifierAcpi(t *testing.T) {
	// GIVEN
	c := gosensors.Chip{
		Prefix: "acpitz",
		Bus: gosensors.Bus{
			Type: BusTypeAcpi,
			Nr:   0,
		},
		Path: "/sys/class/hwmon/hwmon0",
	}

	// WHEN
	result := computeIdentifier(c)

	// THEN
	assert.Equal(t, "acpitz-acpi-0", result)
}

func TestFindPlatform(t *testing.T) {
	assert.Equal(t, "", findPlatform("/sys/devices/pci0000:00/0000:00:0e.0/nvme/nvme0/hwmon3"))
	assert.Equal(t,
		"/sys/devices/platform/legion_laptop_16irx9",
		findPlatform("/sys/devices/platform/legion_laptop_16irx9/hwmon/hwmon6"),
	)
}

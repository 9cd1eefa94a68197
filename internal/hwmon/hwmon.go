package hwmon

import (
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/md14454/gosensors"
	"github.com/vivekchamoli/legion2go/internal/util"
)

const (
	BusTypeIsa  = 1
	BusTypePci  = 2
	BusTypeAcpi = 5
)

var platformRegex = regexp.MustCompile(`.*/platform/[^/]+`)

// Input is a single temperature or fan input of a chip
type Input struct {
	Label string  `json:"label"`
	Path  string  `json:"path"`
	Value float64 `json:"value"`
}

type Chip struct {
	Identifier string  `json:"identifier"`
	Name       string  `json:"name"`
	Modalias   string  `json:"modalias"`
	Platform   string  `json:"platform"`
	Path       string  `json:"path"`
	Temps      []Input `json:"temps"`
	Fans       []Input `json:"fans"`
}

// GetChips returns all chips known to lm-sensors that expose temperatures or fans
func GetChips() []*Chip {
	gosensors.Init()
	defer gosensors.Cleanup()
	detected := gosensors.GetDetectedChips()

	var list []*Chip
	for _, chip := range detected {
		temps := getInputs(chip, gosensors.FeatureTypeTemp, gosensors.SubFeatureTypeTempInput)
		fans := getInputs(chip, gosensors.FeatureTypeFan, gosensors.SubFeatureTypeFanInput)
		if len(temps) <= 0 && len(fans) <= 0 {
			continue
		}

		list = append(list, &Chip{
			Identifier: computeIdentifier(chip),
			Name:       chipName(chip),
			Modalias:   util.GetDeviceModalias(chip.Path),
			Platform:   findPlatform(chip.Path),
			Path:       chip.Path,
			Temps:      temps,
			Fans:       fans,
		})
	}
	return list
}

// FindChipPath returns the sysfs path of the first chip with the given name
func FindChipPath(name string) (string, bool) {
	gosensors.Init()
	defer gosensors.Cleanup()

	for _, chip := range gosensors.GetDetectedChips() {
		if chipName(chip) == name {
			return chip.Path, true
		}
	}
	return "", false
}

func getInputs(chip gosensors.Chip, featureType gosensors.FeatureType, inputType gosensors.SubFeatureType) []Input {
	var result []Input
	for _, feature := range chip.GetFeatures() {
		if feature.Type != featureType {
			continue
		}
		for _, subfeature := range feature.GetSubFeatures() {
			if subfeature.Type != inputType {
				continue
			}
			result = append(result, Input{
				Label: util.GetLabel(chip.Path, subfeature.Name),
				Path:  filepath.Join(chip.Path, subfeature.Name),
				Value: subfeature.GetValue(),
			})
		}
	}
	return result
}

func chipName(chip gosensors.Chip) string {
	name := chip.Prefix
	if len(name) <= 0 {
		name = util.GetDeviceName(chip.Path)
	}
	if len(name) <= 0 {
		_, name = filepath.Split(chip.Path)
	}
	return name
}

// computeIdentifier builds an lm-sensors style chip identifier, e.g. nvme-pci-0100
func computeIdentifier(chip gosensors.Chip) string {
	name := chipName(chip)
	address := (int(chip.Bus.Nr) << 12) | int(chip.Addr)

	switch chip.Bus.Type {
	case BusTypeIsa:
		return fmt.Sprintf("%s-isa-%04x", name, address)
	case BusTypePci:
		return fmt.Sprintf("%s-pci-%04x", name, address)
	case BusTypeAcpi:
		return fmt.Sprintf("%s-acpi-%d", name, chip.Bus.Nr)
	}
	return name
}

func findPlatform(devicePath string) string {
	return platformRegex.FindString(devicePath)
}

package maintenance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSectorCatalog(t *testing.T) {
	assert.True(t, IsKnownSector("HUELVA"))
	assert.True(t, IsKnownSector(" huelva "))
	assert.True(t, IsKnownSector("CÁDIZ"))
	assert.False(t, IsKnownSector("MADRID"))

	assert.Contains(t, Sectors(), "SEVILLA-SANTA JUSTA")
	assert.Len(t, Sectors(), 6)
	assert.IsIncreasing(t, Sectors())
}

func TestStations(t *testing.T) {
	assert.True(t, IsKnownStation("UTRERA", "Marchena"))
	assert.False(t, IsKnownStation("UTRERA", "CARTUJA"))
	assert.False(t, IsKnownStation("MADRID", "ATOCHA"))

	// CÁDIZ declares no stations and accepts any non empty one
	assert.True(t, IsKnownStation("CÁDIZ", "ANY"))
	assert.False(t, IsKnownStation("CÁDIZ", " "))

	stations := Stations("JEREZ")
	stations[0] = "CHANGED"
	assert.Equal(t, "AEROPUERTO DE JEREZ", Stations("JEREZ")[0])
}

func TestInstallationTypes(t *testing.T) {
	assert.True(t, IsInstallationType("motores"))
	assert.True(t, IsInstallationType(TypeSignals))
	assert.False(t, IsInstallationType("ASCENSORES"))
	assert.Len(t, InstallationTypes(), 6)
}

func TestFormatPhone(t *testing.T) {
	assert.Equal(t, "+34600123456", FormatPhone("600 123 456"))
	assert.Equal(t, "+34600123456", FormatPhone("+34 600-123-456"))
	assert.Equal(t, "", FormatPhone("  "))
}

func TestAgentRequestValidate(t *testing.T) {
	valid := AgentRequest{Name: "ana", Role: "TÉCNICO", Phone: "600123456", Email: "ana@example.com"}
	assert.NoError(t, valid.Validate())

	bad := valid
	bad.Phone = "12"
	assert.Error(t, bad.Validate())

	bad = valid
	bad.Email = "not-an-email"
	assert.Error(t, bad.Validate())

	bad = valid
	bad.Name = ""
	assert.Error(t, bad.Validate())

	agent := valid.Agent()
	assert.Equal(t, "ANA", agent.Name)
	assert.Equal(t, "+34600123456", agent.Phone)
}

func TestElementRequestValidate(t *testing.T) {
	req := ElementRequest{Name: "CV 12", Type: TypeTrackCircuits, Sector: "UTRERA", Station: "OSUNA"}
	assert.NoError(t, req.Validate())

	req.Station = "CARTUJA"
	assert.Error(t, req.Validate())

	req.Station = "OSUNA"
	req.Type = "ASCENSORES"
	assert.Error(t, req.Validate())
}

func TestParseDate(t *testing.T) {
	d, ok := parseDate("2024-05-01")
	assert.True(t, ok)
	assert.Equal(t, 2024, d.Year())

	_, ok = parseDate("2024-05-01T10:00:00Z")
	assert.True(t, ok)

	d, ok = parseDate("")
	assert.True(t, ok)
	assert.True(t, d.IsZero())

	_, ok = parseDate("01/05/2024")
	assert.False(t, ok)
}

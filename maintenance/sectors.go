package maintenance

import (
	"slices"
	"sort"
	"strings"
)

// Installation types known to the maintenance plans
const (
	TypeTrackCircuits = "CIRCUITOS DE VÍA"
	TypeMotors        = "MOTORES"
	TypeLevelCrossing = "PN"
	TypeSignals       = "SEÑALES Y ASFA"
	TypeBatteries     = "BATERÍAS"
	TypeInterlocking  = "ENCLAVAMIENTO"
)

var installationTypes = []string{
	TypeTrackCircuits,
	TypeMotors,
	TypeLevelCrossing,
	TypeSignals,
	TypeBatteries,
	TypeInterlocking,
}

// sectors maps each sector to its stations. CÁDIZ is a selectable sector
// with no stations declared yet.
var sectors = map[string][]string{
	"SEVILLA-SANTA JUSTA": {
		"DOS HERMANAS", "LA SALUD", "SEVILLA SANTA JUSTA", "LA NEGRILLA",
		"TRIÁNGULO TAMARGUILLO", "MAJARABIQUE", "CARTUJA", "ALAMILLO",
		"VALENCINA-SANTIPONCE", "SALTERAS", "VVA ARISCAL Y OLIVARES", "BENACAZÓN",
	},
	"SEVILLA-SAN PABLO": {
		"CTT", "BRENES", "LOS ROSALES", "LORA DEL RIO", "VVA DEL RIO Y MINAS",
		"PEDROSO", "CAZALLA-CONSTANTINA", "GUADALCANAL",
	},
	"HUELVA": {
		"HUELVA MERCANCÍAS", "GIBRALEÓN", "CALAÑAS", "VALDELAMUSA",
		"JABUGO-GALAROZA", "S. JUAN DEEL PUERTO", "NIEBLA", "LA PALMA DEL CONDADO",
		"ESCACENA", "CARRIÓN DE LOS CÉSPEDES", "AZNALCAZAR-PILAS",
	},
	"UTRERA": {
		"UTRERA", "BIF. UTRERA", "EL SORBITO", "ARAHAL", "MARCHENA", "OSUNA",
		"PEDRERA", "FUENTE DE PIEDRA", "LAS CABEZAS DE S. JUAN", "LEBRIJA",
	},
	"JEREZ": {
		"AEROPUERTO DE JEREZ", "JEREZ MERCANCÍAS", "JEREZ DE LA FRONTERA",
		"PUERTO DE STA MARÍA", "LAS ALETAS", "UNIVERSIDAD DE CÁDIZ",
		"SAN FERNANDO-BAHÍA SUR", "RÍO ARILLO", "CORTADURA", "CÁDIZ",
	},
	"CÁDIZ": {},
}

// InstallationTypes returns the known installation types
func InstallationTypes() []string {
	return slices.Clone(installationTypes)
}

// Sectors returns the sector names in alphabetical order
func Sectors() []string {
	names := make([]string, 0, len(sectors))
	for name := range sectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stations returns the stations of sector
func Stations(sector string) []string {
	return slices.Clone(sectors[normalizeName(sector)])
}

// IsKnownSector reports whether sector is in the catalog
func IsKnownSector(sector string) bool {
	_, ok := sectors[normalizeName(sector)]
	return ok
}

// IsKnownStation reports whether station belongs to sector. Sectors without a
// declared station list accept any station.
func IsKnownStation(sector, station string) bool {
	stations, ok := sectors[normalizeName(sector)]
	if !ok {
		return false
	}
	if len(stations) == 0 {
		return strings.TrimSpace(station) != ""
	}
	return slices.Contains(stations, normalizeName(station))
}

// IsInstallationType reports whether kind is a known installation type
func IsInstallationType(kind string) bool {
	return slices.Contains(installationTypes, normalizeName(kind))
}

func normalizeName(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

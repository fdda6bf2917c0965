package tables

import (
	"regexp"

	"github.com/JonMunkholm/AssetRecon/internal/core"
)

// Inventory field names.
const (
	ID           = "id"
	CreatedOn    = "created_on"
	UpdatedOn    = "updated_on"
	Name         = "name"
	CICode       = "ci_code"
	ShortName    = "short_name"
	FullName     = "full_name"
	Description  = "description"
	Notes        = "notes"
	Status       = "status"
	Manufacturer = "manufacturer"
	Serial       = "serial"
	Model        = "model"
	Location     = "location"
	Mount        = "mount"
	Hostname     = "hostname"
	DNS          = "dns"
	IP           = "ip"
	CPUCores     = "cpu_cores"
	CPUFreq      = "cpu_freq"
	RAM          = "ram"
	TotalVolume  = "total_volume"
	Type         = "type"
	Category     = "category"
	UserOrg      = "user_org"
	OwnerOrg     = "owner_org"
	CodeMon      = "code_mon"
)

// Fields is the canonical inventory column order, as written to a fresh
// reference file.
var Fields = []string{
	ID, CreatedOn, UpdatedOn, Name, CICode, ShortName, FullName, Description,
	Notes, Status, Manufacturer, Serial, Model, Location, Mount, Hostname,
	DNS, IP, CPUCores, CPUFreq, RAM, TotalVolume, Type, Category, UserOrg,
	OwnerOrg, CodeMon,
}

// IdentityFields are the codes that recognize the same asset across exports.
var IdentityFields = []string{CICode, DNS, Hostname, ID}

// Statuses are the recognized lifecycle states.
var Statuses = []string{
	"В эксплуатации",
	"Планируется",
	"Подготовка к эксплуатации",
	"Выведен из эксплуатации",
	"На обслуживании",
}

const octet = `25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?`

var (
	ciCodePattern   = core.Anchored(`[A-Za-z]{3}[ -]\d{8}`)
	hostnamePattern = core.Anchored(`[A-Za-z]{3}\d-[A-Za-z]{3}-[A-Za-z]{3}`)
	dnsPattern      = core.Anchored(`[A-Za-z]{3}\d-[A-Za-z]{3}-[A-Za-z]{3}\.[A-Za-z]*\.[A-Za-z]*`)
	idPattern       = core.Anchored(`[0-9A-Fa-f]{8}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{12}`)
	ipPattern       = core.Anchored(`(?:(?:` + octet + `)\.){3}(?:` + octet + `)`)
	serialPattern   = core.Anchored(`[A-Za-z]+`)
	integerPattern  = core.Anchored(`\d+`)
	decimalPattern  = core.Anchored(`-?\d+(?:\.\d+)?`)
	mountPattern    = core.Anchored(`(?i:стойка|место)\s*\d+`)
)

func text(field string, weight int) core.FieldRule {
	return core.FieldRule{Field: field, Kind: core.RuleAny, AllowEmpty: true, Weight: weight}
}

func pattern(field string, weight int, re *regexp.Regexp, expect string) core.FieldRule {
	return core.FieldRule{
		Field:      field,
		Kind:       core.RulePattern,
		Pattern:    re,
		AllowEmpty: true,
		Weight:     weight,
		Expect:     expect,
	}
}

// Rules returns the inventory field grammar. Weights rank duplicate
// candidates; a weight of 0 never affects which duplicate wins.
func Rules() []core.FieldRule {
	id := pattern(ID, 7, idPattern, "an 8-4-4-4-12 hexadecimal id")
	id.AllowEmpty = false

	return []core.FieldRule{
		id,
		text(CreatedOn, 2),
		text(UpdatedOn, 2),
		text(Name, 1),
		pattern(CICode, 5, ciCodePattern, "a CI code like ABC-12345678"),
		text(ShortName, 1),
		text(FullName, 1),
		text(Description, 0),
		text(Notes, 1),
		{
			Field:      Status,
			Kind:       core.RuleEnum,
			Enum:       Statuses,
			AllowEmpty: true,
			Weight:     1,
			Expect:     "a recognized lifecycle status",
		},
		text(Manufacturer, 3),
		pattern(Serial, 2, serialPattern, "letters only"),
		text(Model, 0),
		text(Location, 1),
		pattern(Mount, 1, mountPattern, `"стойка <n>" or "место <n>"`),
		pattern(Hostname, 4, hostnamePattern, "a host name like abc1-def-ghi"),
		pattern(DNS, 4, dnsPattern, "a DNS name like abc1-def-ghi.zone.local"),
		pattern(IP, 3, ipPattern, "a dotted-quad address with octets 0-255"),
		pattern(CPUCores, 2, integerPattern, "a whole number"),
		pattern(CPUFreq, 2, decimalPattern, "a number"),
		pattern(RAM, 2, integerPattern, "a whole number"),
		pattern(TotalVolume, 2, integerPattern, "a whole number"),
		text(Type, 3),
		pattern(Category, 2, integerPattern, "a whole number"),
		text(UserOrg, 3),
		text(OwnerOrg, 3),
		text(CodeMon, 1),
	}
}

// ColumnTypes are the typed storage columns of the valid dataset. Fields
// not listed are stored as text.
var ColumnTypes = map[string]core.ColumnType{
	ID:          core.ColumnUUID,
	CreatedOn:   core.ColumnTimestamp,
	UpdatedOn:   core.ColumnTimestamp,
	CPUCores:    core.ColumnInteger,
	RAM:         core.ColumnInteger,
	TotalVolume: core.ColumnInteger,
	Category:    core.ColumnInteger,
	CPUFreq:     core.ColumnNumeric,
	IP:          core.ColumnInet,
}

// Grammar binds the inventory rules to schema.
func Grammar(schema core.Schema) (*core.Grammar, error) {
	return core.NewGrammar(schema, Rules())
}

package citation

func testRows() []AbbreviationRow {
	return []AbbreviationRow{
		{SRNumber: "220", Abbreviation: "OR", Language: "de", Canton: "ch"},
		{SRNumber: "220", Abbreviation: "CO", Language: "fr", Canton: "ch"},
		{SRNumber: "220", Abbreviation: "CO", Language: "it", Canton: "ch"},
		{SRNumber: "210", Abbreviation: "ZGB", Language: "de", Canton: "ch"},
		{SRNumber: "210", Abbreviation: "CC", Language: "fr", Canton: "ch"},
		{SRNumber: "210", Abbreviation: "CC", Language: "it", Canton: "ch"},
		{SRNumber: "311.0", Abbreviation: "StGB", Language: "de", Canton: "ch"},
	}
}

func testTable() *AbbreviationTable { return NewAbbreviationTable(testRows()) }

func intPtr(n int) *int { return &n }

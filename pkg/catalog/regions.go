package catalog

var defaultCatalog = MustNew(NorthAmerica())

// Default returns the catalog of US states, DC and Canadian provinces and
// territories.
func Default() *Catalog {
	return defaultCatalog
}

// NorthAmerica returns the standard region list. US states and DC are worth
// 1 point; Canadian provinces and territories are worth 2 and use 3-letter
// codes so they never collide with US codes.
func NorthAmerica() []Region {
	us := func(id, name string) Region {
		return Region{ID: id, Name: name, Points: 1, Country: CountryUS}
	}
	ca := func(id, name string) Region {
		return Region{ID: id, Name: name, Points: 2, Country: CountryCanada}
	}
	return []Region{
		us("AL", "Alabama"),
		us("AK", "Alaska"),
		us("AZ", "Arizona"),
		us("AR", "Arkansas"),
		us("CA", "California"),
		us("CO", "Colorado"),
		us("CT", "Connecticut"),
		us("DE", "Delaware"),
		us("FL", "Florida"),
		us("GA", "Georgia"),
		us("HI", "Hawaii"),
		us("ID", "Idaho"),
		us("IL", "Illinois"),
		us("IN", "Indiana"),
		us("IA", "Iowa"),
		us("KS", "Kansas"),
		us("KY", "Kentucky"),
		us("LA", "Louisiana"),
		us("ME", "Maine"),
		us("MD", "Maryland"),
		us("MA", "Massachusetts"),
		us("MI", "Michigan"),
		us("MN", "Minnesota"),
		us("MS", "Mississippi"),
		us("MO", "Missouri"),
		us("MT", "Montana"),
		us("NE", "Nebraska"),
		us("NV", "Nevada"),
		us("NH", "New Hampshire"),
		us("NJ", "New Jersey"),
		us("NM", "New Mexico"),
		us("NY", "New York"),
		us("NC", "North Carolina"),
		us("ND", "North Dakota"),
		us("OH", "Ohio"),
		us("OK", "Oklahoma"),
		us("OR", "Oregon"),
		us("PA", "Pennsylvania"),
		us("RI", "Rhode Island"),
		us("SC", "South Carolina"),
		us("SD", "South Dakota"),
		us("TN", "Tennessee"),
		us("TX", "Texas"),
		us("UT", "Utah"),
		us("VT", "Vermont"),
		us("VA", "Virginia"),
		us("WA", "Washington"),
		us("WV", "West Virginia"),
		us("WI", "Wisconsin"),
		us("WY", "Wyoming"),
		us("DC", "Washington DC"),

		ca("ALB", "Alberta"),
		ca("BCO", "British Columbia"),
		ca("MAN", "Manitoba"),
		ca("NBR", "New Brunswick"),
		ca("NFL", "Newfoundland and Labrador"),
		ca("NSC", "Nova Scotia"),
		ca("ONT", "Ontario"),
		ca("PEI", "Prince Edward Island"),
		ca("QUE", "Quebec"),
		ca("SAS", "Saskatchewan"),
		ca("YUK", "Yukon"),
		ca("NWT", "Northwest Territories"),
		ca("NUN", "Nunavut"),
	}
}

package suggest

// Rule maps description keywords to a category name. Keywords are matched
// as upper-case substrings; trailing spaces are significant.
type Rule struct {
	Category string   `yaml:"category" json:"category"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// DefaultRules is the built-in keyword table for French personal accounts.
// Rules are tried in order and the first matching keyword wins.
func DefaultRules() []Rule {
	return []Rule{
		{Category: "Restaurants", Keywords: []string{
			"RESTAURANT", "REST ", "RESTO", "BRASSERIE", "BISTRO", "CAFE ", "PIZZA",
			"SUSHI", "KEBAB", "BURGER", "MCDONALD", "KFC", "QUICK", "SUBWAY",
			"BAR ", "PUB ", "TAVERN", "BIERE", "BEER",
		}},
		{Category: "Supermarches", Keywords: []string{
			"CARREFOUR", "MONOPRIX", "MONOP", "FRANPRIX", "AUCHAN", "LECLERC", "LIDL",
			"INTERMARCHE", "CASINO", "SUPER U", "SPAR", "PICARD", "ALDI", "COSTCO",
			"PRIMEUR", "MARCHE", "BOUCHERIE", "FROMAGERIE", "POISSONNERIE", "BOULANG",
			"PATISSERIE", "EPICERIE",
		}},
		{Category: "Transport", Keywords: []string{
			"RATP", "SNCF", "SNCB", "UBER", "BOLT", "TAXI", "NAVIGO", "METRO", "PARKING",
			"INDIGO", "EFFIA", "STATIONNEMENT", "PEAGE", "AUTOROUTE", "APRR", "SANEF",
			"ASF", "COFIROUTE", "ESCOTA", "TOTAL", "ESSO", "BP ", "SHELL", "STATION",
			"ESSENCE", "GARAGE",
		}},
		{Category: "Loisirs", Keywords: []string{
			"CIRQUE", "CINEMA", "UGC", "PATHE", "THEATRE", "CONCERT", "MUSEE", "MUSEUM",
			"SPECTACLE", "FNAC", "CULTURA", "CONSERVATOIRE", "BILLETREDUC", "TICKET",
			"WEEZEVENT", "DICE.FM", "HELLOASSO",
		}},
		{Category: "Sante", Keywords: []string{
			"PHARMACIE", "PHARMA", "MEDECIN", "DOCTEUR", "DR ", "LABORATOIRE",
			"DENTAIRE", "OPTICIEN", "HENNER", "MUTUELLE", "SANTE",
		}},
		{Category: "Abonnements", Keywords: []string{
			"NETFLIX", "SPOTIFY", "AMAZON PRIME", "CANAL", "ORANGE", "SFR", "BOUYGUES",
			"FREE MOBILE", "DEEZER", "DISNEY",
		}},
		{Category: "Sport", Keywords: []string{
			"FITNESS", "GYM", "SPORT", "DECATHLON", "INTERSPORT", "GO SPORT",
		}},
		{Category: "Loyers", Keywords: []string{
			"LOYER", "EDF", "ENGIE", "GAZ", "ELECTRICITE", "SYNDIC", "IMMOBILIER", "AGENCE IMMO",
		}},
		{Category: "Cloud", Keywords: []string{
			"KAMATERA", "AWS", "GOOGLE CLOUD", "AZURE", "DIGITALOCEAN", "OVH", "SCALEWAY",
			"ONLINE SAS", "DEDIBOX",
		}},
		{Category: "Sortie", Keywords: []string{
			"SUPERSONIC", "CLUB", "DISCOTHEQUE", "LIVE", "MUSIC",
		}},
		{Category: "DAB", Keywords: []string{"RETRAIT DAB", "DAB ", "DISTRIBUTEUR"}},
		{Category: "Placements", Keywords: []string{"CARDIF", "ASSURANCE VIE", "PLACEMENT", "EPARGNE"}},
		{Category: "Equipement", Keywords: []string{
			"DARTY", "BOULANGER", "LDLC", "MATERIEL.NET", "IKEA", "LEROY MERLIN",
			"CASTORAMA", "BRICORAMA", "BRICOMAN", "BRICOMARCHE", "AMAZON", "CDISCOUNT",
		}},
		{Category: "Impots", Keywords: []string{"DGFIP", "IMPOT", "TRESOR PUBLIC", "AMENDE"}},
		{Category: "Assurance", Keywords: []string{
			"MAIF", "MACIF", "MAAF", "AXA", "ALLIANZ", "GROUPAMA", "MATMUT", "GMF",
		}},
		{Category: "Virements", Keywords: []string{"VIREMENT SEPA EMIS", "VIR CPTE A CPTE", "VIRT CPTE A CPTE"}},
		{Category: "Cheques", Keywords: []string{"CHEQUE"}},
		{Category: "Paiements", Keywords: []string{"PAYPAL", "STRIPE", "SUMUP", "ZETTLE", "LYDIA"}},
		{Category: "Voyages", Keywords: []string{
			"AIRBNB", "BOOKING", "HOTEL", "BKG*HOTEL", "AIR FRANCE", "EASYJET", "RYANAIR", "VUELING",
		}},
		{Category: "Vetements", Keywords: []string{
			"ZARA", "H&M", "UNIQLO", "KIABI", "ARMAND THIERY", "CELIO", "JULES", "CAMAIEU",
		}},
	}
}

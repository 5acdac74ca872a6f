package sendtime

// usStateZones maps US state/territory codes to their dominant IANA zone.
// States split across zones use the zone covering most of the population.
// This table takes precedence over the generic country table.
var usStateZones = map[string]string{
	"AL": "America/Chicago",
	"AK": "America/Anchorage",
	"AZ": "America/Phoenix",
	"AR": "America/Chicago",
	"CA": "America/Los_Angeles",
	"CO": "America/Denver",
	"CT": "America/New_York",
	"DE": "America/New_York",
	"DC": "America/New_York",
	"FL": "America/New_York",
	"GA": "America/New_York",
	"HI": "Pacific/Honolulu",
	"ID": "America/Boise",
	"IL": "America/Chicago",
	"IN": "America/Indiana/Indianapolis",
	"IA": "America/Chicago",
	"KS": "America/Chicago",
	"KY": "America/New_York",
	"LA": "America/Chicago",
	"ME": "America/New_York",
	"MD": "America/New_York",
	"MA": "America/New_York",
	"MI": "America/Detroit",
	"MN": "America/Chicago",
	"MS": "America/Chicago",
	"MO": "America/Chicago",
	"MT": "America/Denver",
	"NE": "America/Chicago",
	"NV": "America/Los_Angeles",
	"NH": "America/New_York",
	"NJ": "America/New_York",
	"NM": "America/Denver",
	"NY": "America/New_York",
	"NC": "America/New_York",
	"ND": "America/Chicago",
	"OH": "America/New_York",
	"OK": "America/Chicago",
	"OR": "America/Los_Angeles",
	"PA": "America/New_York",
	"RI": "America/New_York",
	"SC": "America/New_York",
	"SD": "America/Chicago",
	"TN": "America/Chicago",
	"TX": "America/Chicago",
	"UT": "America/Denver",
	"VT": "America/New_York",
	"VA": "America/New_York",
	"WA": "America/Los_Angeles",
	"WV": "America/New_York",
	"WI": "America/Chicago",
	"WY": "America/Denver",
	"PR": "America/Puerto_Rico",
}

// countryZones maps ISO country codes (and a few common spellings) to a
// representative IANA zone.
var countryZones = map[string]string{
	"US": "America/New_York",
	"CA": "America/Toronto",
	"MX": "America/Mexico_City",
	"BR": "America/Sao_Paulo",
	"AR": "America/Argentina/Buenos_Aires",
	"GB": "Europe/London",
	"UK": "Europe/London",
	"IE": "Europe/Dublin",
	"FR": "Europe/Paris",
	"DE": "Europe/Berlin",
	"NL": "Europe/Amsterdam",
	"BE": "Europe/Brussels",
	"ES": "Europe/Madrid",
	"PT": "Europe/Lisbon",
	"IT": "Europe/Rome",
	"CH": "Europe/Zurich",
	"AT": "Europe/Vienna",
	"SE": "Europe/Stockholm",
	"NO": "Europe/Oslo",
	"DK": "Europe/Copenhagen",
	"FI": "Europe/Helsinki",
	"PL": "Europe/Warsaw",
	"CZ": "Europe/Prague",
	"GR": "Europe/Athens",
	"RO": "Europe/Bucharest",
	"TR": "Europe/Istanbul",
	"IL": "Asia/Jerusalem",
	"AE": "Asia/Dubai",
	"SA": "Asia/Riyadh",
	"IN": "Asia/Kolkata",
	"SG": "Asia/Singapore",
	"MY": "Asia/Kuala_Lumpur",
	"TH": "Asia/Bangkok",
	"VN": "Asia/Ho_Chi_Minh",
	"PH": "Asia/Manila",
	"ID": "Asia/Jakarta",
	"HK": "Asia/Hong_Kong",
	"CN": "Asia/Shanghai",
	"TW": "Asia/Taipei",
	"JP": "Asia/Tokyo",
	"KR": "Asia/Seoul",
	"AU": "Australia/Sydney",
	"NZ": "Pacific/Auckland",
	"ZA": "Africa/Johannesburg",
	"NG": "Africa/Lagos",
	"EG": "Africa/Cairo",
	"KE": "Africa/Nairobi",
	"RU": "Europe/Moscow",
	"UA": "Europe/Kyiv",
}

// tldZones maps email-domain suffixes to a representative zone. Common
// business TLDs default to US Eastern since the platform's lead base skews
// heavily US when nothing else is known.
var tldZones = map[string]string{
	"com": "America/New_York",
	"org": "America/New_York",
	"net": "America/New_York",
	"io":  "America/New_York",
	"co":  "America/New_York",
	"ai":  "America/New_York",
	"us":  "America/New_York",
	"edu": "America/New_York",
	"gov": "America/New_York",

	"ca": "America/Toronto",
	"mx": "America/Mexico_City",
	"br": "America/Sao_Paulo",
	"uk": "Europe/London",
	"ie": "Europe/Dublin",
	"fr": "Europe/Paris",
	"de": "Europe/Berlin",
	"nl": "Europe/Amsterdam",
	"es": "Europe/Madrid",
	"it": "Europe/Rome",
	"ch": "Europe/Zurich",
	"se": "Europe/Stockholm",
	"no": "Europe/Oslo",
	"dk": "Europe/Copenhagen",
	"fi": "Europe/Helsinki",
	"pl": "Europe/Warsaw",
	"in": "Asia/Kolkata",
	"sg": "Asia/Singapore",
	"hk": "Asia/Hong_Kong",
	"cn": "Asia/Shanghai",
	"jp": "Asia/Tokyo",
	"kr": "Asia/Seoul",
	"au": "Australia/Sydney",
	"nz": "Pacific/Auckland",
	"za": "Africa/Johannesburg",
}

// secondLevelZones maps well-known second-level domains (like co.uk) that
// would otherwise be misread by a bare TLD lookup.
var secondLevelZones = map[string]string{
	"co.uk":  "Europe/London",
	"org.uk": "Europe/London",
	"ac.uk":  "Europe/London",
	"com.au": "Australia/Sydney",
	"co.nz":  "Pacific/Auckland",
	"co.in":  "Asia/Kolkata",
	"co.jp":  "Asia/Tokyo",
	"com.br": "America/Sao_Paulo",
	"com.sg": "Asia/Singapore",
	"com.hk": "Asia/Hong_Kong",
	"com.mx": "America/Mexico_City",
	"co.za":  "Africa/Johannesburg",
}

// Package extract holds the pure text heuristics the site adapters share:
// locale price parsing, weight and size resolution, brand recognition,
// variant extraction, wet-food classification, and the card price-set rules.
package extract

// QualityBrands are always scraped regardless of the user's watch list
// (grain-free, high-meat, no-sugar wet food lines).
var QualityBrands = []string{
	"Leonardo", "MAC's", "Catz Finefood", "MjAMjAM", "Animonda",
	"Granatapet", "Wildes Land", "Applaws", "Lily's Kitchen", "Bozita",
	"Terra Faelis", "Venandi Animal", "Carnilove", "Schesir", "Almo Nature",
	"Lucky Lou", "Tundra", "Edgard & Cooper", "Cat's Love", "Hardys",
	"Defu", "The Goodstuff", "Pure Nature", "STRAYZ",
	"Wild Freedom", "Purizon", "Feringa", "KITTY Cat",
	"Miamor", "Sanabelle", "Happy Cat", "Royal Canin",
	"Kattovit", "Brit Care", "Josera",
}

// KnownBrands is the comprehensive cat food brand table used for brand
// recognition in product names.
var KnownBrands = []string{
	"Almo Nature", "Animonda", "Animonda Carny", "Animonda Integra Protect",
	"Applaws", "Bozita", "Catz Finefood", "Concept for Life", "Cosma",
	"Crave", "Dreamies", "Feringa", "Felix", "Gourmet", "Gourmet Gold",
	"Granatapet", "GRAU", "Happy Cat", "Hill's", "Hill's Pet Nutrition",
	"Hill's Prescription Diet", "Hill's Science Plan",
	"Kitty Cat", "Kattovit", "Leonardo", "Lily's Kitchen", "Lucky Lou",
	"MAC's", "Mera", "Miamor", "MjAMjAM", "My Star",
	"N&D", "Nutrivet", "Perfect Fit", "Porta 21", "Pro Plan", "Purina", "Purina ONE", "Purizon",
	"Rocco", "Rosie's Farm", "Royal Canin", "Royal Canin Veterinary",
	"Sanabelle", "Schesir", "Sheba", "Smilla",
	"Terra Faelis", "Thrive", "Tundra", "Vitakraft", "Whiskas", "Wild Freedom", "Wildes Land",
	"zooplus Basics", "zooplus Bio",
	"Blink", "Canagan", "Cat's Love", "Cesar", "Encore", "GimCat", "Goood", "Greenies",
	"Josera", "Orijen", "Taste of the Wild", "Weruva", "Yarrah", "Ziwi Peak",
}

// excludeKeywords mark products that are definitely not wet food
// (dry food, litter, toys, accessories, grooming, carriers).
var excludeKeywords = []string{
	"trockenfutter", "trocken", "dry", "kibble",
	"katzenstreu", "streu", "litter",
	"kratzbaum", "kratzmöbel", "spielzeug", "toy",
	"snacks", "leckerli", "treats", "sticks",
	"zubehör", "accessory", "napf", "bowl",
	"bürste", "kamm", "pflege", "shampoo",
	"halsband", "collar", "leine", "leash",
	"transport", "käfig", "korb",
}

// wetFoodKeywords positively identify wet food products.
var wetFoodKeywords = []string{
	"nassfutter", "dose", "beutel", "pouch", "paté", "pate",
	"mousse", "ragout", "sauce", "gelee", "jelly", "brühe",
	"filet", "schale", "frischebeutel", "multipack",
}

// variantStopWords are product-type and marketing words stripped before the
// variant descriptor is isolated.
var variantStopWords = []string{
	"sparpaket", "mixpaket", "probierpaket", "multipack", "spar-paket",
	"nassfutter", "katzenfutter", "cat", "katze", "kitten", "adult", "senior",
	"dose", "dosen", "schale", "schalen", "beutel", "pouch",
	"all meat", "classic", "finest", "premium", "bio", "organic",
	"vetcare", "vet care", "sensitive", "sterilized", "indoor",
}

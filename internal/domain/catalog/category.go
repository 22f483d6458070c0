package catalog

import "regexp"

// categoryGroup pairs a category with its keyword patterns. The slice below is
// evaluated in order and the first group with a matching pattern wins, so the
// order is a tie-break contract: a name matching both the fruits and the
// vegetables keywords always classifies as fruits. Do not reorder.
type categoryGroup struct {
	category Category
	patterns []*regexp.Regexp
}

// Keywords match whole tokens of the normalized (lowercase, space-separated)
// name. Token anchoring is spelled out as (^|space)...(space|$) because
// Go's \b is ASCII-only and fails on keywords starting with umlauts.
func tokens(alternatives string) *regexp.Regexp {
	return regexp.MustCompile(`(?:^|\s)(?:` + alternatives + `)(?:\s|$)`)
}

var categoryTable = []categoryGroup{
	{CategoryFruits, []*regexp.Regexp{
		tokens(`apfel|äpfel|banane|orange|birne|traube|erdbeere|kirsche|pfirsich|pflaume`),
		tokens(`avocado|mango|ananas|kiwi|melone|beere|himbeere|blaubeere`),
	}},
	{CategoryVegetables, []*regexp.Regexp{
		tokens(`tomate|gurke|karotte|möhre|zwiebel|kartoffel|paprika|salat`),
		tokens(`brokkoli|blumenkohl|spinat|zucchini|aubergine|radieschen`),
	}},
	{CategoryDairy, []*regexp.Regexp{
		tokens(`milch|käse|joghurt|quark|butter|sahne|frischkäse`),
		tokens(`mozzarella|gouda|camembert|feta|ricotta`),
	}},
	{CategoryMeatFish, []*regexp.Regexp{
		tokens(`fleisch|wurst|schinken|salami|hähnchen|rind|schwein|lamm`),
		tokens(`fisch|lachs|thunfisch|forelle|garnele|muschel`),
	}},
	{CategoryBakery, []*regexp.Regexp{
		tokens(`brot|brötchen|croissant|kuchen|torte|keks|zwieback`),
		tokens(`vollkorn|weizen|roggen|dinkel|semmel`),
	}},
	{CategoryPantry, []*regexp.Regexp{
		tokens(`pasta|nudel|reis|mehl|zucker|salz|öl|essig|gewürz`),
		tokens(`dose|konserve|sauce|ketchup|senf|marmelade|honig`),
	}},
	{CategoryBeverages, []*regexp.Regexp{
		tokens(`wasser|saft|limonade|cola|bier|wein|kaffee|tee`),
		tokens(`mineralwasser|apfelsaft|orangensaft|sprite|fanta`),
	}},
	{CategorySnacks, []*regexp.Regexp{
		tokens(`chips|schokolade|bonbon|gummibär|nuss|mandel`),
		tokens(`keks|cracker|popcorn|pretzel|riegel`),
	}},
	{CategoryHousehold, []*regexp.Regexp{
		tokens(`reiniger|waschmittel|spülmittel|toilettenpapier|küchentuch`),
		tokens(`seife|shampoo|zahnpasta|deo|creme`),
	}},
}

// PredictCategory classifies an item name into a product category using the
// ordered keyword table, falling back to CategoryOther when nothing matches.
func PredictCategory(name string) Category {
	normalized := NormalizeName(name)

	for _, group := range categoryTable {
		for _, pattern := range group.patterns {
			if pattern.MatchString(normalized) {
				return group.category
			}
		}
	}

	return CategoryOther
}

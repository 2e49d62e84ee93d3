package analyzer

import "github.com/tripnote/tripnote/internal/domain/entity"

// topicKeywords is the controlled vocabulary. Membership is a plain
// case-insensitive substring test against the whole text, so short
// keywords match inside longer words on purpose.
var topicKeywords = []struct {
	topic    string
	keywords []string
}{
	{entity.Travel, []string{
		"travel", "trip", "journey", "vacation", "holiday", "tour", "visit",
		"destination", "passport", "abroad", "sightseeing", "backpack", "itinerary",
		"flight", "hotel",
	}},
	{entity.Food, []string{
		"food", "restaurant", "dinner", "lunch", "breakfast", "brunch", "meal",
		"cafe", "coffee", "eat", "cuisine", "dish", "delicious", "taste", "snack",
		"bakery", "dessert", "wine",
	}},
	{entity.Culture, []string{
		"culture", "museum", "temple", "church", "cathedral", "art", "history",
		"historic", "ancient", "heritage", "gallery", "monument", "palace", "tradition",
		"shrine",
	}},
	{entity.Nature, []string{
		"nature", "mountain", "beach", "lake", "river", "forest", "park", "hike",
		"ocean", "sea", "island", "waterfall", "sunset", "garden", "wildlife", "volcano",
	}},
	{entity.Adventure, []string{
		"adventure", "hiking", "climb", "diving", "surf", "trek", "kayak",
		"rafting", "zipline", "explore", "camping", "ski", "paragliding",
	}},
	{entity.Entertainment, []string{
		"entertainment", "concert", "show", "movie", "theater", "theatre", "music",
		"nightlife", "bar", "club", "party", "festival", "game", "cinema", "performance",
	}},
	{entity.Shopping, []string{
		"shopping", "shop", "market", "mall", "souvenir", "store", "boutique",
		"bought", "purchase", "gift",
	}},
	{entity.Transport, []string{
		"transport", "train", "bus", "taxi", "flight", "metro", "subway", "car",
		"bike", "ferry", "airport", "station", "ticket",
	}},
}

var positiveWords = []string{
	"amazing", "great", "good", "wonderful", "excellent", "love", "beautiful",
	"fantastic", "awesome", "perfect", "delicious", "enjoy", "happy", "best",
	"lovely", "incredible", "stunning", "brilliant", "fun",
}

var negativeWords = []string{
	"terrible", "awful", "horrible", "disappoint", "worst", "hate", "poor",
	"dirty", "rude", "boring", "overpriced", "angry", "annoying", "broken",
	"bad", "sad", "scam",
}

// places is a small gazetteer. Lowercase keys; multi-word entries match
// merged capitalized phrases.
var places = setOf(
	"paris", "london", "rome", "milan", "venice", "florence", "naples", "tokyo",
	"kyoto", "osaka", "berlin", "munich", "madrid", "barcelona", "seville",
	"lisbon", "porto", "amsterdam", "prague", "vienna", "budapest", "athens",
	"istanbul", "dubai", "bangkok", "singapore", "seoul", "beijing", "shanghai",
	"hanoi", "bali", "sydney", "melbourne", "cairo", "marrakech", "reykjavik",
	"new york", "los angeles", "san francisco", "hong kong", "mexico city",
	"france", "italy", "spain", "japan", "germany", "portugal", "greece",
	"thailand", "vietnam", "india", "china", "mexico", "peru", "brazil",
	"canada", "egypt", "morocco", "iceland", "norway", "australia", "england",
	"scotland", "ireland", "europe", "asia", "africa",
)

var placeSuffixes = setOf(
	"city", "street", "avenue", "tower", "park", "beach", "island", "mountain",
	"mountains", "lake", "river", "temple", "museum", "square", "bridge",
	"palace", "castle", "airport", "station", "market", "cathedral", "bay",
	"valley", "village", "falls",
)

// placePreps precede a place name ("dinner in Paris").
var placePreps = setOf(
	"in", "at", "to", "from", "near", "around", "across", "through", "toward",
	"towards", "visited", "visit", "visiting", "into",
)

// personCues precede a person name ("with Maria").
var personCues = setOf(
	"with", "met", "meet", "by", "called", "named", "friend", "asked", "told", "and",
)

var honorifics = setOf("mr", "mrs", "ms", "miss", "dr", "prof", "sir", "madam")

var firstNames = setOf(
	"maria", "john", "anna", "david", "sarah", "michael", "emma", "james",
	"sophie", "lucas", "kenji", "yuki", "ahmed", "fatima", "carlos", "elena",
	"pierre", "marie", "luca", "giulia", "hans", "olga", "ivan", "priya",
	"raj", "tom", "alex", "sam", "lisa", "laura", "paul", "peter", "julia",
	"nina", "omar", "ana", "mateo", "sofia", "liam", "noah", "olivia", "ava",
	"mia", "ethan", "daniel", "jack", "chloe", "leo", "hiro", "mei",
)

var orgSuffixes = setOf(
	"inc", "corp", "corporation", "ltd", "llc", "company", "co", "airlines",
	"airways", "bank", "university", "college", "institute", "foundation",
	"group", "agency", "association", "club",
)

var knownOrgs = setOf(
	"google", "apple", "airbnb", "uber", "booking", "ryanair", "easyjet",
	"unesco", "marriott", "hilton", "starbucks", "amazon", "lufthansa",
)

var stopwords = setOf(
	"a", "an", "the", "and", "or", "but", "if", "of", "in", "on", "at", "to",
	"from", "by", "for", "with", "about", "as", "into", "onto", "over", "under",
	"near", "around", "across", "through", "toward", "towards", "after", "before",
	"during", "between", "without", "within", "i", "me", "my", "mine", "we",
	"us", "our", "you", "your", "he", "him", "his", "she", "her", "it", "its",
	"they", "them", "their", "this", "that", "these", "those", "there", "here",
	"what", "which", "who", "whom", "whose", "when", "where", "why", "how",
	"all", "any", "some", "no", "not", "so", "too", "very", "just", "also",
	"than", "then", "only", "own", "same", "such", "each", "every", "both",
	"few", "more", "most", "other", "much", "many", "again", "once", "up",
	"down", "out", "off", "can", "could", "should", "would", "will", "shall",
	"may", "might", "must", "am", "is", "are", "was", "were", "be", "been",
	"being", "has", "have", "had", "having", "do", "does", "did", "doing",
	"i'm", "i've", "i'd", "i'll", "don't", "didn't", "it's", "we're", "that's",
	"yes", "ok", "okay", "one", "two", "three", "per", "via", "ago", "still",
	"yet", "even", "ever", "never", "always", "often", "today", "tomorrow",
	"yesterday", "tonight", "week", "month", "year",
)

var verbs = setOf(
	"find", "show", "search", "get", "got", "go", "goes", "went", "gone",
	"going", "visit", "visited", "see", "saw", "seen", "eat", "ate", "eaten",
	"buy", "bought", "cost", "costs", "spend", "spent", "pay", "paid", "want",
	"need", "like", "liked", "love", "loved", "enjoy", "enjoyed", "stay",
	"stayed", "meet", "met", "walk", "walked", "try", "tried", "look",
	"looking", "give", "gave", "list", "tell", "told", "make", "made", "take",
	"took", "taken", "know", "knew", "think", "thought", "come", "came",
	"feel", "felt", "let", "say", "said", "remember", "book", "booked",
	"bring", "brought", "leave", "left", "arrive", "arrived", "explored",
)

var adjectives = setOf(
	"cheap", "expensive", "costly", "ancient", "amazing", "beautiful", "good",
	"great", "bad", "old", "new", "big", "small", "local", "famous", "best",
	"nice", "delicious", "awful", "terrible", "quiet", "busy", "cold", "hot",
	"warm", "spicy", "sweet", "historic", "modern", "traditional", "lovely",
	"romantic", "scenic", "crowded", "cozy", "fresh", "tasty", "free", "last",
	"first", "next", "favorite", "favourite", "long", "short", "high", "low",
	"wonderful", "excellent", "fantastic", "awesome", "perfect", "incredible",
	"stunning", "boring", "dirty", "rude", "friendly", "quick", "huge", "tiny",
	"authentic", "vegan", "vegetarian", "rainy", "sunny", "late", "early",
	"happy", "sad", "hidden", "popular", "fancy", "casual", "overpriced",
)

// adjectiveSuffixes classify unknown words as adjectives.
var adjectiveSuffixes = []string{"ous", "ful", "less", "able", "ible"}

// lyNouns end in "ly" but are not adverbs.
var lyNouns = setOf(
	"family", "italy", "july", "rally", "sicily", "lily", "jelly", "belly",
	"ally", "butterfly", "fly", "holy", "supply", "reply", "assembly",
)

// edNouns end in "ed" but are not past-tense verbs.
var edNouns = setOf("speed", "seed", "need", "feed", "hundred", "bed", "shed", "red")

func setOf(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// IsStopword reports whether the lowercase word carries no search meaning.
func IsStopword(lower string) bool { return stopwords[lower] }

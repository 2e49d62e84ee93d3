// Package tripnote is an offline-first travel journal with a local,
// multi-strategy search engine.
//
// A Client owns a record store, an index snapshot rebuilt from it, and a
// search service that combines exact token lookup, fuzzy matching and
// entity-based matching into one ranked list:
//
//	c, err := tripnote.New(ctx, tripnote.WithFileStore("data"))
//	if err != nil { ... }
//	defer c.Close()
//
//	_ = c.Initialize(ctx)
//	hits, err := c.Search("dinner in paris").In(tripnote.Journal, tripnote.Food).Limit(10).Do(ctx)
//
// An optional OpenAI-compatible model suggests alternate terms when local
// results are weak; local results stay authoritative when it fails.
package tripnote

// Package ctxsearch embeds the content relevance engine in a Go program.
//
// The client pulls entries from a content source (the Contentstack Delivery
// API or a local fixture file), ranks them against a query, caches the ranked
// response and renders it as a context block for an LLM prompt.
//
//	client, _ := ctxsearch.New(ctx,
//	    ctxsearch.WithContentstack(apiKey, deliveryToken, "production"),
//	    ctxsearch.WithMemoryCache(1000, time.Hour),
//	)
//	defer client.Close()
//
//	res, _ := client.Search(ctx, "return policy", ctxsearch.ContentTypes("faq"))
//	block, _ := client.Context(ctx, "return policy", 1500)
//
// # Conversations
//
// Enhance splices the context block into a conversation before it is sent
// to a chat model:
//
//	msgs, n := client.Enhance(ctx, history, userMessage)
package ctxsearch

// Package kbretrieve is a client for managed knowledge base retrieval.
//
// A Retriever is bound to one knowledge base and turns a plain-text query
// into a ranked list of documents:
//
//	r, err := kbretrieve.New(ctx, "KBXXXXXXXX",
//		kbretrieve.WithRegion("us-east-1"),
//		kbretrieve.WithMinScoreConfidence(0.5),
//	)
//	if err != nil {
//		// handle
//	}
//	docs, err := r.Retrieve(ctx, "how do I rotate credentials?")
//
// Search behavior (result count, metadata filters, hybrid vs semantic
// search) is controlled with a retrieval.RetrievalConfig, built either
// with typed constructors or from a wire-shaped map:
//
//	f := retrieval.And(
//		retrieval.Equals("department", "engineering"),
//		retrieval.GreaterThan("year", 2023),
//	)
//	vs, _ := retrieval.NewVectorSearchConfig(8, f, retrieval.SearchTypeHybrid)
//	cfg, _ := retrieval.NewRetrievalConfig(vs, "")
//	r, err := kbretrieve.New(ctx, "KBXXXXXXXX", kbretrieve.WithRetrievalConfig(cfg))
//
// Credentials and region resolution follow the standard AWS SDK chain.
package kbretrieve

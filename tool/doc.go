// Package tool provides ready-to-use tools for agents.
//
// All tools implement the langchaingo tools.Tool interface (Name,
// Description, Call), so they can be bound to any agent that accepts that
// interface.
//
// # Web Search
//
// SerperSearch queries Google through the Serper API:
//
//	searchTool, err := tool.NewSerperSearch("your-serper-api-key",
//		tool.WithSerperNum(5),
//	)
//	result, err := searchTool.Call(ctx, "golang generics tutorial")
//
// SerperPlaces searches Google Places with the same credentials:
//
//	placesTool, err := tool.NewSerperPlaces("your-serper-api-key")
//	result, err := placesTool.Call(ctx, "coffee shops in Seattle")
//
// # Web Pages
//
// WebPageReader fetches a URL and returns its readable text:
//
//	reader := tool.NewWebPageReader(tool.WithReaderMaxChars(4000))
//	result, err := reader.Call(ctx, "https://example.com/article")
package tool

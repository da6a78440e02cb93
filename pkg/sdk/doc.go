// Package pdfchat embeds the PDF question answering pipeline in a Go program.
//
// The client talks to Valkey (or Redis) for metadata and vectors and to an
// S3-compatible bucket for the raw PDFs. Embeddings and answers come from
// caller-supplied providers or from an OpenAI-compatible API.
//
//	client, _ := pdfchat.New(ctx,
//	    pdfchat.WithValkey("localhost:6379", ""),
//	    pdfchat.WithBlobStore(pdfchat.BlobConfig{Endpoint: "localhost:9000", Bucket: "pdfs"}),
//	    pdfchat.WithOpenAI(pdfchat.OpenAIConfig{APIKey: key}),
//	)
//	defer client.Close()
//
//	doc, res, _ := client.Documents().Ingest(ctx, "report.pdf", data)
//	answer, _ := client.Ask(ctx, doc.ID, "What is the conclusion?")
//
// Streaming answers arrive fragment by fragment:
//
//	stream, _ := client.AskStream(ctx, doc.ID, "Summarize section 2")
//	defer stream.Close()
//	for {
//	    frag, err := stream.Recv()
//	    if errors.Is(err, io.EOF) {
//	        break
//	    }
//	    fmt.Print(frag)
//	}
package pdfchat

// Command pdfchat serves the PDF question answering API and offers one-shot
// ingest and ask commands against the same stores.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

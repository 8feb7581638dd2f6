// Package pdftl is the client side of a PDF upload-and-translate viewer.
//
// A backend renders each page of an uploaded PDF to an image and returns the
// page's original and translated text. This package coordinates paging through
// such a document: it caches pages by page number and language pair, serves
// cached pages synchronously, keeps at most one request in flight per page,
// prefetches the likely-next page, and drops stale results when the language
// pair or the document changes.
//
// Basic usage:
//
//	import (
//	    "context"
//	    "github.com/ZaguanLabs/pdftl"
//	    "github.com/ZaguanLabs/pdftl/client"
//	    "github.com/ZaguanLabs/pdftl/history"
//	)
//
//	func main() {
//	    c := client.New("http://localhost:8000")
//	    store, _ := history.NewFileStore(history.FileConfig{})
//
//	    nav := pdftl.NewNavigator(c,
//	        pdftl.WithLanguages(pdftl.LanguagePair{Source: "auto", Target: "pt"}),
//	        pdftl.WithProgressReporter(store),
//	    )
//
//	    page, err := nav.Open(context.Background(), "doc-id", 1)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(page.TranslatedText)
//
//	    nav.NextPage(context.Background())
//	}
package pdftl

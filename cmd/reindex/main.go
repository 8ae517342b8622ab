package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/andrewmcdan/AI-Document-Interview-System/internal/app"
	types "github.com/andrewmcdan/AI-Document-Interview-System/internal/domain"
)

type idList []string

func (l *idList) String() string { return strings.Join(*l, ",") }
func (l *idList) Set(v string) error {
	v = strings.TrimSpace(v)
	if v != "" {
		*l = append(*l, v)
	}
	return nil
}

// Re-embeds stored chunk rows and rewrites their vector points. Intended for
// recovery after a collection wipe or an embedding model change.
func main() {
	var docs idList
	var dryRun bool
	var limit int
	flag.Var(&docs, "document", "document id to reindex (repeatable; default all)")
	flag.BoolVar(&dryRun, "dry-run", false, "print planned work without touching the vector store")
	flag.IntVar(&limit, "limit", 0, "limit number of documents processed")
	flag.Parse()

	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	ctx := context.Background()

	var rows []*types.Document
	if len(docs) > 0 {
		ids := make([]uuid.UUID, 0, len(docs))
		for _, s := range docs {
			id, err := uuid.Parse(strings.TrimSpace(s))
			if err == nil && id != uuid.Nil {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			fmt.Println("no valid document id values provided")
			return
		}
		rows, err = application.Repos.Document.GetByIDs(ctx, nil, ids)
	} else {
		err = application.DB.WithContext(ctx).Find(&rows).Error
	}
	if err != nil {
		fmt.Printf("load documents: %v\n", err)
		os.Exit(1)
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	reindexed := 0
	chunks := 0
	for _, doc := range rows {
		if doc == nil || doc.ID == uuid.Nil {
			continue
		}
		if dryRun {
			count, _ := application.Repos.DocumentChunk.CountByDocument(ctx, nil, doc.ID)
			fmt.Printf("[dry-run] reindex document_id=%s chunks=%d\n", doc.ID.String(), count)
			continue
		}
		n, err := application.Services.Ingestion.ReindexDocument(ctx, doc.ID)
		if err != nil {
			fmt.Printf("reindex failed for document %s: %v\n", doc.ID.String(), err)
			continue
		}
		reindexed++
		chunks += n
		fmt.Printf("reindexed document_id=%s chunks=%d\n", doc.ID.String(), n)
	}

	fmt.Printf("done; documents=%d chunks=%d\n", reindexed, chunks)
}

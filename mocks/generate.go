package mocks

//go:generate mockgen -destination=./mock_source.go -package=mocks github.com/rxtech-lab/twstock-scanner/pkg/marketdata/provider Source
//go:generate mockgen -destination=./mock_store.go -package=mocks github.com/rxtech-lab/twstock-scanner/internal/storage Store
//go:generate mockgen -destination=./mock_annotator.go -package=mocks github.com/rxtech-lab/twstock-scanner/internal/indicator Annotator

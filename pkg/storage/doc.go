// Package storage provides bucket-scoped S3 operations for the campaign
// pipeline: uploads, downloads, existence checks, and presigned URL
// generation for handing objects to external services.
//
// Every network operation passes through the rate limit registry before it
// reaches S3. Object transfers draw from the s3_operations resource and URL
// signing from s3_presigned, so a pipeline fanning out across briefs cannot
// exceed the account's request budget.
//
// # Usage
//
//	var cfg storage.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//	cfg.Bucket = bucket // usually a CLI argument
//
//	store, err := storage.New(ctx, cfg, limits)
//	if err != nil {
//		return err
//	}
//
//	key := storage.JoinKey("templates", templateName)
//	if err := store.UploadFile(ctx, key, localPath); err != nil {
//		return err
//	}
//
//	url, err := store.PresignDownload(ctx, key, 2*time.Hour)
//
// Presigned URLs are plain SigV4 GET/PUT URLs, which is the form Adobe's
// storage:"external" inputs and outputs accept.
//
// # Key hygiene
//
// SafeSegment, JoinKey, and UniqueKey normalize user-supplied filenames
// before they become object keys. Diacritics fold to ASCII and path
// separators are stripped, so a brief naming its template "héro image.psd"
// yields the key "templates/hero-image.psd".
//
// # Testing
//
// The S3API and PresignAPI interfaces cover the client surface the Manager
// touches. Inject mocks with WithClient and WithPresigner.
package storage

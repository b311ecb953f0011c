package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"

	"velours_back_end/internal/database"
)

// Dossiers d'upload autorisés (imagerie catalogue + branding boutique)
const (
	FolderProducts = "products"
	FolderLogos    = "logos"
	FolderBanners  = "banners"
)

// SaveFile stocke un fichier uploadé dans MinIO sous <folder>/<horodatage>-<nom>
// et retourne son URL publique stable
func SaveFile(ctx context.Context, file *multipart.FileHeader, folder string) (string, error) {
	if database.MinIO == nil {
		return "", fmt.Errorf("MinIO non initialisé")
	}

	f, err := file.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	objectName := fmt.Sprintf("%s/%d-%s", folder, time.Now().UnixNano(), filepath.Base(file.Filename))
	bucket := os.Getenv("MINIO_BUCKET")

	_, err = database.MinIO.PutObject(ctx, bucket, objectName, f, file.Size,
		minio.PutObjectOptions{ContentType: file.Header.Get("Content-Type")})
	if err != nil {
		return "", err
	}

	return ObjectURL(objectName), nil
}

// ObjectURL reconstruit l'URL publique d'un objet du bucket
func ObjectURL(objectName string) string {
	return fmt.Sprintf("http://%s/%s/%s", os.Getenv("MINIO_ENDPOINT"), os.Getenv("MINIO_BUCKET"), objectName)
}

// RemoveFile supprime un objet du bucket
func RemoveFile(ctx context.Context, objectName string) error {
	if database.MinIO == nil {
		return fmt.Errorf("MinIO non initialisé")
	}
	return database.MinIO.RemoveObject(ctx, os.Getenv("MINIO_BUCKET"), objectName, minio.RemoveObjectOptions{})
}

// GenerateSignedURL génère une URL présignée à durée de vie bornée
func GenerateSignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	if database.MinIO == nil {
		return "", fmt.Errorf("MinIO non initialisé")
	}

	u, err := database.MinIO.PresignedGetObject(ctx, os.Getenv("MINIO_BUCKET"), objectName, expiry, nil)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

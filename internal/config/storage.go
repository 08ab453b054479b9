package config

import "errors"

// ObjectStorage selects where a stored artifact is persisted. Exactly one
// backend should be configured; validation of each backend is local to it.
type ObjectStorage struct {
	AmazonS3          *AmazonS3          `json:"aws,omitempty"`
	GCPCloudStorage   *GCPCloudStorage   `json:"gcp,omitempty"`
	AzureBlobStorage  *AzureBlobStorage  `json:"azure,omitempty"`
	FileSystemStorage *FileSystemStorage `json:"filesystem,omitempty"`
}

func (o *ObjectStorage) Validate() error {
	if o == nil {
		return nil
	}
	if err := o.AmazonS3.validate(); err != nil {
		return err
	}
	if err := o.GCPCloudStorage.validate(); err != nil {
		return err
	}
	if err := o.AzureBlobStorage.validate(); err != nil {
		return err
	}
	return o.FileSystemStorage.validate()
}

// AmazonS3 configures an Amazon S3-compatible object storage backend.
// Credentials come from the default chain: environment variables, shared
// credentials file, ECS or EC2 instance role.
type AmazonS3 struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	Region string `json:"region,omitempty"`
	URL    string `json:"url,omitempty"` // for test purposes
}

func (a *AmazonS3) validate() error {
	if a == nil {
		return nil
	}
	if a.Bucket == "" {
		return errors.New("amazon s3 bucket is required")
	}
	if a.Key == "" {
		return errors.New("amazon s3 key is required")
	}
	return nil
}

// GCPCloudStorage configures a Google Cloud Storage bucket. Credentials come
// from the default chain: environment variables, gcloud application-default
// login, GCE/GKE metadata server.
type GCPCloudStorage struct {
	Bucket string `json:"bucket"`
	Object string `json:"object"`
}

func (g *GCPCloudStorage) validate() error {
	if g == nil {
		return nil
	}
	if g.Bucket == "" {
		return errors.New("gcp cloud storage bucket is required")
	}
	if g.Object == "" {
		return errors.New("gcp cloud storage object is required")
	}
	return nil
}

// AzureBlobStorage configures an Azure Blob Storage container. Credentials
// come from the default chain: environment variables, managed identity,
// Azure CLI login.
type AzureBlobStorage struct {
	AccountURL string `json:"account_url"`
	Container  string `json:"container"`
	Path       string `json:"path"`
}

func (a *AzureBlobStorage) validate() error {
	if a == nil {
		return nil
	}
	if a.AccountURL == "" {
		return errors.New("azure blob storage account URL is required")
	}
	if a.Container == "" {
		return errors.New("azure blob storage container is required")
	}
	if a.Path == "" {
		return errors.New("azure blob storage path is required")
	}
	return nil
}

// FileSystemStorage persists the artifact to a local file.
type FileSystemStorage struct {
	Path string `json:"path"`
}

func (f *FileSystemStorage) validate() error {
	if f == nil {
		return nil
	}
	if f.Path == "" {
		return errors.New("filesystem storage path is required")
	}
	return nil
}

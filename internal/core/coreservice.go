package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jo-hoe/goregister/internal/backend/blobstore"
	"github.com/jo-hoe/goregister/internal/backend/commands"
	"github.com/jo-hoe/goregister/internal/backend/commandstructure"
	"github.com/jo-hoe/goregister/internal/backend/database"
	"github.com/jo-hoe/goregister/internal/common"
)

type CoreService struct {
	config          *ServiceConfig
	databaseService database.DatabaseService
	blobStore       *blobstore.FileStore
	formValidator   *common.FormValidator
	thumbnails      *commandstructure.CommandInvoker
	now             func() time.Time
}

// NewCoreService opens the configured database and upload directory.
func NewCoreService(config *ServiceConfig) (*CoreService, error) {
	databaseService, err := getDatabaseService(config)
	if err != nil {
		return nil, err
	}
	blobStore, err := blobstore.NewFileStore(config.Uploads.Directory)
	if err != nil {
		_ = databaseService.Close()
		return nil, fmt.Errorf("failed to initialize upload directory: %w", err)
	}
	images, err := blobStore.List()
	if err != nil {
		_ = databaseService.Close()
		return nil, fmt.Errorf("failed to list upload directory: %w", err)
	}
	slog.Info("upload store ready", "directory", blobStore.Directory(), "images", len(images))

	service, err := NewCoreServiceWithStores(config, databaseService, blobStore)
	if err != nil {
		_ = databaseService.Close()
		return nil, err
	}
	return service, nil
}

// NewCoreServiceWithStores builds the service around already opened stores.
func NewCoreServiceWithStores(config *ServiceConfig, databaseService database.DatabaseService, blobStore *blobstore.FileStore) (*CoreService, error) {
	thumbnails, err := commandstructure.NewCommandInvokerFromConfigs(config.ThumbnailCommands())
	if err != nil {
		return nil, fmt.Errorf("failed to build thumbnail pipeline: %w", err)
	}
	return &CoreService{
		config:          config,
		databaseService: databaseService,
		blobStore:       blobStore,
		formValidator:   common.NewFormValidator(),
		thumbnails:      thumbnails,
		now:             time.Now,
	}, nil
}

func (service *CoreService) Close() error {
	return service.databaseService.Close()
}

// IsHealthy reports whether the database answers.
func (service *CoreService) IsHealthy() bool {
	return service.databaseService.DoesDatabaseExist()
}

// Register validates the form and image, stores the image and inserts the row. When the
// insert fails the stored image is removed again.
func (service *CoreService) Register(ctx context.Context, form RegistrationForm, upload *Upload) (*database.Registration, error) {
	if err := service.validateForm(form); err != nil {
		return nil, err
	}
	imageName, err := service.storeUpload(upload)
	if err != nil {
		return nil, err
	}

	registration := form.toRegistration()
	registration.ImageFilename = &imageName
	if err := service.databaseService.CreateRegistration(ctx, registration); err != nil {
		service.discardImage(imageName)
		return nil, &StoreError{Op: ActionRegister, Message: msgDatabase, Err: err}
	}

	slog.Info("registration created", "id", registration.ID, "image", imageName)
	return registration, nil
}

// List returns all registrations, newest first.
func (service *CoreService) List(ctx context.Context) ([]*database.Registration, error) {
	registrations, err := service.databaseService.GetAllRegistrations(ctx)
	if err != nil {
		return nil, &StoreError{Op: ActionView, Message: msgFetch, Err: err}
	}
	return registrations, nil
}

func (service *CoreService) Get(ctx context.Context, id int64) (*database.Registration, error) {
	registration, err := service.databaseService.GetRegistrationByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StoreError{Op: ActionEdit, Message: msgDatabase, Err: err}
	}
	return registration, nil
}

// Update rewrites the registration. Without an upload the current image is kept. With an
// upload the new image is stored first and the previous one is removed only after the
// row update committed; a failed update removes the new image instead.
func (service *CoreService) Update(ctx context.Context, id int64, form RegistrationForm, upload *Upload) (*database.Registration, error) {
	if err := service.validateForm(form); err != nil {
		return nil, err
	}

	var newImage *string
	if upload != nil {
		imageName, err := service.storeUpload(upload)
		if err != nil {
			return nil, err
		}
		newImage = &imageName
	}

	registration := form.toRegistration()
	registration.ID = id
	registration.ImageFilename = newImage

	updated, previousImage, err := service.databaseService.UpdateRegistration(ctx, registration, newImage != nil)
	if err != nil {
		if newImage != nil {
			service.discardImage(*newImage)
		}
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, &StoreError{Op: ActionUpdate, Message: msgDatabase, Err: err}
	}

	if newImage != nil && previousImage != nil && *previousImage != "" && *previousImage != *newImage {
		service.discardImage(*previousImage)
	}

	slog.Info("registration updated", "id", id, "image_replaced", newImage != nil)
	return updated, nil
}

// Delete removes the row and then its image. Deleting a missing row succeeds.
func (service *CoreService) Delete(ctx context.Context, id int64) error {
	deleted, err := service.databaseService.DeleteRegistration(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		slog.Info("registration already absent", "id", id)
		return nil
	}
	if err != nil {
		return &StoreError{Op: ActionDelete, Message: msgDeleteFailed, Err: err}
	}

	if deleted.HasImageReference() {
		service.discardImage(*deleted.ImageFilename)
	}
	slog.Info("registration deleted", "id", id)
	return nil
}

// HasImage is true only when the row names an image that is present in the store.
func (service *CoreService) HasImage(registration *database.Registration) bool {
	if registration == nil || !registration.HasImageReference() {
		return false
	}
	return service.blobStore.Exists(*registration.ImageFilename)
}

// ImagePath resolves a stored image for serving. It fails for unknown or unsafe names.
func (service *CoreService) ImagePath(name string) (string, error) {
	if !service.blobStore.Exists(name) {
		return "", fmt.Errorf("image %q: %w", name, blobstore.ErrNotFound)
	}
	return service.blobStore.Path(name)
}

// Thumbnail runs the configured command pipeline over a stored image.
func (service *CoreService) Thumbnail(name string) ([]byte, error) {
	data, err := service.blobStore.Read(name)
	if err != nil {
		return nil, err
	}
	thumbnail, err := service.thumbnails.Execute(data)
	if err != nil {
		return nil, fmt.Errorf("failed to generate thumbnail: %w", err)
	}
	return thumbnail, nil
}

func (service *CoreService) MaxUploadBytes() int64 {
	return service.config.Uploads.MaxSizeBytes
}

// TooLargeError is the validation failure reported for images over the upload limit.
func (service *CoreService) TooLargeError() error {
	return &ValidationError{Field: "image", Message: fmt.Sprintf(msgTooLarge, service.config.Uploads.MaxSizeBytes/1000000)}
}

func (service *CoreService) validateForm(form RegistrationForm) error {
	err := service.formValidator.Validate(form)
	if err == nil {
		return nil
	}
	var violation *common.Violation
	if errors.As(err, &violation) {
		return &ValidationError{Field: violation.Field, Message: violationMessage(violation)}
	}
	return fmt.Errorf("failed to validate form: %w", err)
}

// storeUpload checks the image and writes it under "<unix seconds>_<basename>".
func (service *CoreService) storeUpload(upload *Upload) (string, error) {
	if upload == nil {
		return "", &ValidationError{Field: "image", Message: msgImageRequired}
	}

	info, err := commands.InspectImage(upload.Data, upload.Filename, service.config.Uploads.MaxSizeBytes)
	switch {
	case errors.Is(err, commands.ErrNotAnImage):
		return "", &ValidationError{Field: "image", Message: msgNotAnImage}
	case errors.Is(err, commands.ErrTooLarge):
		return "", service.TooLargeError()
	case errors.Is(err, commands.ErrUnsupportedType):
		return "", &ValidationError{Field: "image", Message: msgUnsupported}
	case err != nil:
		return "", fmt.Errorf("failed to inspect upload: %w", err)
	}

	name := blobstore.GenerateName(service.now(), info.Basename)
	if err := service.blobStore.Save(name, upload.Data); err != nil {
		return "", &StoreError{Op: "upload", Message: msgUpload, Err: err}
	}
	slog.Debug("image stored", "image", name, "format", info.Format, "width", info.Width, "height", info.Height)
	return name, nil
}

// discardImage removes an image that is no longer referenced. Failures only leave an
// orphaned file behind and are logged.
func (service *CoreService) discardImage(name string) {
	if err := service.blobStore.Delete(name); err != nil {
		slog.Warn("failed to delete image", "image", name, "error", err)
	}
}

func getDatabaseService(config *ServiceConfig) (database.DatabaseService, error) {
	databaseService, err := database.NewDatabase(config.Database.Type, config.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("database initialized successfully", "type", config.Database.Type)
	return databaseService, nil
}

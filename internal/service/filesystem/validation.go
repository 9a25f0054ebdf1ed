package filesystem

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"fileflow/internal/config"
	"fileflow/internal/domain"
	models "fileflow/internal/domain/models/filesystem"
	fsSvc "fileflow/internal/domain/services/filesystem"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// nodeNamePattern rejects characters that are not allowed in names.
var nodeNamePattern = regexp.MustCompile(`^[^<>:"/\\|?*]+$`)

func nameRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.Length(1, config.MaxNodeNameLength),
		validation.Match(nodeNamePattern).Error(`name cannot contain any of <>:"/\|?*`),
	}
}

var tagRule = validation.By(func(value interface{}) error {
	tags, _ := value.([]string)
	for _, tag := range tags {
		if len(tag) > config.MaxTagLength {
			return fmt.Errorf("tag %q is longer than %d characters", tag, config.MaxTagLength)
		}
	}
	return nil
})

var accessLevelRule = validation.By(func(value interface{}) error {
	switch v := value.(type) {
	case *models.AccessLevel:
		if v != nil && !v.Valid() {
			return fmt.Errorf("must be one of public, private, protected")
		}
	case models.AccessLevel:
		if !v.Valid() {
			return fmt.Errorf("must be one of public, private, protected")
		}
	}
	return nil
})

// storageKeyRule accepts clean relative object keys. With prefixes set the
// key must also live under one of them.
func storageKeyRule(prefixes ...string) validation.Rule {
	return validation.By(func(value interface{}) error {
		var key string
		switch v := value.(type) {
		case string:
			key = v
		case *string:
			if v == nil {
				return nil
			}
			key = *v
		}
		if key == "" {
			return nil
		}
		if strings.HasPrefix(key, "/") || strings.ContainsAny(key, "\\\x00") ||
			path.Clean(key) != key || key == ".." || strings.HasPrefix(key, "../") {
			return fmt.Errorf("must be a clean relative key")
		}
		if len(prefixes) == 0 {
			return nil
		}
		for _, p := range prefixes {
			if strings.HasPrefix(key, p) && len(key) > len(p) {
				return nil
			}
		}
		return fmt.Errorf("must start with one of %s", strings.Join(prefixes, ", "))
	})
}

// wrapValidation turns an ozzo error into a domain validation error.
func wrapValidation(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", domain.ErrValidation, err)
}

func validateName(name string) error {
	return wrapValidation(validation.Validate(name, nameRules()...))
}

func validateCreateFolderRequest(req *fsSvc.CreateFolderRequest) error {
	return wrapValidation(validation.ValidateStruct(req,
		validation.Field(&req.OwnerID, validation.Required),
		validation.Field(&req.Name, nameRules()...),
		validation.Field(&req.AccessLevel, accessLevelRule),
		validation.Field(&req.Description, validation.Length(0, config.MaxDescriptionLength)),
		validation.Field(&req.Tags, validation.Length(0, config.MaxTags), tagRule),
	))
}

func validateCreateFileRequest(req *fsSvc.CreateFileRequest) error {
	err := validation.ValidateStruct(req,
		validation.Field(&req.OwnerID, validation.Required),
		validation.Field(&req.Name, nameRules()...),
		validation.Field(&req.AccessLevel, accessLevelRule),
		validation.Field(&req.Description, validation.Length(0, config.MaxDescriptionLength)),
		validation.Field(&req.Tags, validation.Length(0, config.MaxTags), tagRule),
	)
	if err != nil {
		return wrapValidation(err)
	}
	if req.FileInfo == nil {
		return domain.ErrFileMissingInfo
	}
	return wrapValidation(validation.ValidateStruct(req.FileInfo,
		validation.Field(&req.FileInfo.FileType, validation.Required),
		validation.Field(&req.FileInfo.StoragePath, validation.Required,
			storageKeyRule(config.SingleUploadPrefix, config.MultipartPrefix)),
		validation.Field(&req.FileInfo.ThumbnailPath, storageKeyRule()),
		validation.Field(&req.FileInfo.FileSize, validation.Min(int64(0))),
	))
}

func validateShareRequest(req *fsSvc.ShareRequest) error {
	return wrapValidation(validation.ValidateStruct(req,
		validation.Field(&req.FileID, validation.Required),
		validation.Field(&req.SharedByUserID, validation.Required),
		validation.Field(&req.SharedWithUserID, validation.Required),
		validation.Field(&req.PermissionLevel, validation.Required, validation.By(func(value interface{}) error {
			if p, _ := value.(models.PermissionLevel); !p.Valid() {
				return fmt.Errorf("must be one of view, edit, admin")
			}
			return nil
		})),
		validation.Field(&req.Message, validation.Length(0, config.MaxShareMessageLength)),
	))
}

// normalizeParent maps an empty parent id to root.
func normalizeParent(id *string) *string {
	if id == nil || strings.TrimSpace(*id) == "" {
		return nil
	}
	return id
}

package usecase

import (
	"context"
	"strings"

	"github.com/insightgrid/platform/domain/entity"
	"github.com/insightgrid/platform/shared/types"
)

// File-type sets driving mapping-type classification. The target side is
// assumed structured, so only the source type matters.
var (
	unstructuredFileTypes = map[string]bool{
		"pdf":  true,
		"docx": true,
		"doc":  true,
		"txt":  true,
		"rtf":  true,
	}
	structuredFileTypes = map[string]bool{
		"xlsx":  true,
		"xls":   true,
		"csv":   true,
		"json":  true,
		"jsonl": true,
	}
)

// ClassifyMappingType maps a source file type onto a mapping type.
// Unknown or missing types default to structured-to-structured.
func ClassifyMappingType(sourceFileType string) entity.MappingType {
	t := strings.ToLower(sourceFileType)
	switch {
	case unstructuredFileTypes[t]:
		return entity.MappingTypeUnstructuredToStructured
	case structuredFileTypes[t]:
		return entity.MappingTypeStructuredToStructured
	default:
		return entity.MappingTypeStructuredToStructured
	}
}

// detectMappingType resolves source and target file metadata and
// classifies the mapping. Any lookup failure degrades to the
// structured-to-structured default instead of aborting the pipeline.
func (u *DataMappingUseCase) detectMappingType(ctx context.Context, sourceFileID, targetFileID types.FileID) entity.MappingType {
	if u.dataAccess == nil {
		u.logger.Warn("Data access unavailable, defaulting mapping type to structured_to_structured")
		return entity.MappingTypeStructuredToStructured
	}

	sourceFile, err := u.dataAccess.GetFile(ctx, sourceFileID)
	if err != nil {
		u.logger.LogStageDegraded("detect_mapping_type", err)
		return entity.MappingTypeStructuredToStructured
	}

	// The target lookup only confirms the file exists; classification is
	// driven by the source type alone.
	if _, err := u.dataAccess.GetFile(ctx, targetFileID); err != nil {
		u.logger.LogStageDegraded("detect_mapping_type", err)
	}

	sourceType := ""
	if sourceFile != nil {
		sourceType = sourceFile.FileType
	}
	return ClassifyMappingType(sourceType)
}

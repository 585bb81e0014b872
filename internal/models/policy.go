package models

import "strings"

// KindPolicy captures the per-variant rules: which media types a submitted
// file may carry and how the task audience is resolved. The single workflow
// engine consults the policy instead of branching on kind everywhere.
type KindPolicy struct {
	AllowDocuments bool
	AllowImages    bool
	// AudienceAllStudents means every student of the owning teacher may
	// submit; otherwise the explicit assignee set decides.
	AudienceAllStudents bool
}

var kindPolicies = map[TaskKind]KindPolicy{
	TaskKindAssignment: {AllowDocuments: true, AllowImages: true},
	TaskKindQuiz:       {AllowImages: true, AudienceAllStudents: true},
	TaskKindExam:       {AllowImages: true, AudienceAllStudents: true},
}

// PolicyFor returns the policy for the given kind.
func PolicyFor(kind TaskKind) KindPolicy {
	return kindPolicies[kind]
}

var documentMediaTypes = map[string]struct{}{
	"application/pdf": {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
	"application/zip": {},
	"text/plain":      {},
}

// AllowsMediaType reports whether a submission with the given media type is
// acceptable under this policy.
func (p KindPolicy) AllowsMediaType(mediaType string) bool {
	mt := strings.ToLower(strings.TrimSpace(mediaType))
	// Detectors may append parameters such as "; charset=utf-8".
	if idx := strings.IndexByte(mt, ';'); idx >= 0 {
		mt = strings.TrimSpace(mt[:idx])
	}
	if p.AllowImages && strings.HasPrefix(mt, "image/") {
		return true
	}
	if p.AllowDocuments {
		if _, ok := documentMediaTypes[mt]; ok {
			return true
		}
	}
	return false
}

// AttachmentMediaTypeAllowed reports whether a teacher-attached reference
// document may carry the given media type. Attachments accept documents and
// images for every task kind.
func AttachmentMediaTypeAllowed(mediaType string) bool {
	return KindPolicy{AllowDocuments: true, AllowImages: true}.AllowsMediaType(mediaType)
}

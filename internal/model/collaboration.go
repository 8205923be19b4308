package model

import "strconv"

// CollaborationColumns is the column order of the collaborations sheet.
var CollaborationColumns = []string{
	"program_name", "competitor", "partner_name", "collaboration_type",
	"source_title", "source_url", "article_date",
}

// MappingColumns is the column order of the mappings sheet.
var MappingColumns = []string{
	"program_name", "competitor", "partner_name", "collaboration_type",
	"source_title", "source_url", "article_date",
	"normalized_partner_name", "matched", "registry_name",
}

// UnmatchedColumns is the column order of the unmatched sheet.
var UnmatchedColumns = []string{
	"partner_name", "candidate_name", "candidate_code", "candidate_score",
	"needs_review",
}

// CollaborationRecord is one partner mention extracted from an article.
// Several records may share a source article. Dedup key is SourceURL: an
// article already represented by at least one record is never re-extracted.
type CollaborationRecord struct {
	ProgramName       string `json:"program_name"`
	Competitor        string `json:"competitor"`
	PartnerName       string `json:"partner_name"`
	CollaborationType string `json:"collaboration_type"`
	SourceTitle       string `json:"source_title"`
	SourceURL         string `json:"source_url"`
	ArticleDate       string `json:"article_date,omitempty"`
}

// Row encodes the record for the record store.
func (c CollaborationRecord) Row() map[string]string {
	return map[string]string{
		"program_name":       c.ProgramName,
		"competitor":         c.Competitor,
		"partner_name":       c.PartnerName,
		"collaboration_type": c.CollaborationType,
		"source_title":       c.SourceTitle,
		"source_url":         c.SourceURL,
		"article_date":       c.ArticleDate,
	}
}

// CollaborationFromRow decodes a collaborations-sheet row.
func CollaborationFromRow(row map[string]string) CollaborationRecord {
	return CollaborationRecord{
		ProgramName:       row["program_name"],
		Competitor:        row["competitor"],
		PartnerName:       row["partner_name"],
		CollaborationType: row["collaboration_type"],
		SourceTitle:       row["source_title"],
		SourceURL:         row["source_url"],
		ArticleDate:       row["article_date"],
	}
}

// MappingResult is a CollaborationRecord after registry resolution. Dedup
// key is the (SourceTitle, SourceURL) pair. RegistryName is empty when the
// record did not match.
type MappingResult struct {
	CollaborationRecord
	NormalizedPartnerName string `json:"normalized_partner_name"`
	Matched               bool   `json:"matched"`
	RegistryName          string `json:"registry_name,omitempty"`
}

// Row encodes the result for the record store. Matched is stored as
// TRUE/FALSE so the sheet reads the same way the booleans do downstream.
func (m MappingResult) Row() map[string]string {
	row := m.CollaborationRecord.Row()
	row["normalized_partner_name"] = m.NormalizedPartnerName
	row["matched"] = formatBool(m.Matched)
	row["registry_name"] = m.RegistryName
	return row
}

// MappingFromRow decodes a mappings-sheet row.
func MappingFromRow(row map[string]string) MappingResult {
	return MappingResult{
		CollaborationRecord:   CollaborationFromRow(row),
		NormalizedPartnerName: row["normalized_partner_name"],
		Matched:               row["matched"] == "TRUE",
		RegistryName:          row["registry_name"],
	}
}

// UnmatchedEntry is the single best fuzzy candidate for a partner name that
// had no exact registry match. NeedsReview flags candidates whose score
// fell below the review threshold; it is advisory only and never
// promotes a fuzzy candidate to a match.
type UnmatchedEntry struct {
	PartnerName    string `json:"partner_name"`
	CandidateName  string `json:"candidate_name,omitempty"`
	CandidateCode  string `json:"candidate_code,omitempty"`
	CandidateScore int    `json:"candidate_score"`
	NeedsReview    bool   `json:"needs_review"`
}

// Row encodes the entry for the record store.
func (u UnmatchedEntry) Row() map[string]string {
	return map[string]string{
		"partner_name":    u.PartnerName,
		"candidate_name":  u.CandidateName,
		"candidate_code":  u.CandidateCode,
		"candidate_score": strconv.Itoa(u.CandidateScore),
		"needs_review":    formatBool(u.NeedsReview),
	}
}

// UnmatchedFromRow decodes an unmatched-sheet row.
func UnmatchedFromRow(row map[string]string) UnmatchedEntry {
	score, _ := strconv.Atoi(row["candidate_score"])
	return UnmatchedEntry{
		PartnerName:    row["partner_name"],
		CandidateName:  row["candidate_name"],
		CandidateCode:  row["candidate_code"],
		CandidateScore: score,
		NeedsReview:    row["needs_review"] == "TRUE",
	}
}

func formatBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

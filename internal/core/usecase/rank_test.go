package usecase

import (
	"strings"
	"testing"

	"github.com/askdesk/knowledge-assistant/internal/core/domain"
)

func rankerForTest() *DocumentRanker {
	return NewDocumentRanker(RankerOptions{})
}

func TestRankPenalizesTrackerSourceDespiteHigherRawScore(t *testing.T) {
	hits := []domain.SearchHit{
		hit("policy", "policy.pdf", "Vacation policy: employees are entitled to 20 days per year. Effective date 2025-01-01.", 0.9),
		hit("ticket", "tracker-export.html", "Vacation request TEC-123, see https://project-tracker.example/browse/TEC-123 for details about vacation days.", 0.95),
		hit("other", "random.txt", "Cafeteria menu for the week, soup and sandwiches.", 0.3),
	}

	ranked := rankerForTest().Rank("How many vacation days do I get?", hits)
	if len(ranked) == 0 {
		t.Fatalf("expected ranked output")
	}

	policyPos, trackerPos := -1, -1
	for i, c := range ranked {
		switch c.Hit.Document.ID {
		case "policy":
			policyPos = i
		case "ticket":
			trackerPos = i
		}
	}
	if policyPos == -1 {
		t.Fatalf("policy.pdf missing from ranked output: %+v", ranked)
	}
	if trackerPos != -1 && trackerPos < policyPos {
		t.Fatalf("tracker-export.html ranked above policy.pdf (tracker=%d policy=%d)", trackerPos, policyPos)
	}
}

func TestClassifySource(t *testing.T) {
	cases := []struct {
		filename string
		content  string
		want     domain.SourceKind
	}{
		{"tracker-export.html", "see https://project-tracker.example/browse/TEC-123", domain.SourceTracker},
		{"policy.pdf", "Vacation policy text", domain.SourceAuthoritative},
		{"", "", domain.SourceUnknown},
	}
	for _, tc := range cases {
		if got := ClassifySource(tc.filename, tc.content); got != tc.want {
			t.Fatalf("ClassifySource(%q) = %v, want %v", tc.filename, got, tc.want)
		}
	}
}

func TestRankPreservesExactMatchOnlyInsideTopRankedBar(t *testing.T) {
	// 25 filler documents with healthy scores push the exact match below the
	// top-20 cutoff; preservation must not force it back in.
	hits := make([]domain.SearchHit, 0, 26)
	for i := 0; i < 25; i++ {
		hits = append(hits, hit(
			string(rune('a'+i%26))+"-filler",
			"report.pdf",
			strings.Repeat("quarterly revenue figures and commentary ", 10),
			1.0-float64(i)*0.01,
		))
	}
	buried := hit("buried", "notes.txt", "The onboarding checklist mentions vacation explicitly.", 0.0001)
	hits = append(hits, buried)

	ranked := rankerForTest().Rank("vacation onboarding checklist", hits)
	for _, c := range ranked {
		if c.Hit.Document.ID == "buried" {
			t.Fatalf("exact match below the top-ranked bar must not be force-included")
		}
	}
}

func TestRankPreservesExactMatchInsideTopRanked(t *testing.T) {
	hits := []domain.SearchHit{
		hit("m", "handbook.pdf", "Relocation stipend rules for new joiners, stipend amounts by office.", 0.5),
		hit("x", "misc.pdf", "Unrelated meeting minutes from the platform sync.", 0.6),
	}

	ranked := rankerForTest().Rank("relocation stipend", hits)
	found := false
	for _, c := range ranked {
		if c.Hit.Document.ID == "m" {
			found = true
			if !c.HasExactMatch {
				t.Fatalf("expected exact-match flag on handbook.pdf")
			}
		}
	}
	if !found {
		t.Fatalf("exact match inside top-ranked set must appear in output")
	}
}

func TestRankFlagsCompactRecordsForURLQuestions(t *testing.T) {
	card := hit("card", "applications.txt", "Payroll Portal\nhttps://payroll.internal.example\nOwner: Finance", 0.4)
	prose := hit("prose", "guide.pdf", strings.Repeat("long descriptive prose about payroll processing steps ", 20), 0.6)

	ranked := rankerForTest().Rank("what is the URL of the payroll portal?", []domain.SearchHit{card, prose})

	var cardCandidate *domain.ScoredCandidate
	for i := range ranked {
		if ranked[i].Hit.Document.ID == "card" {
			cardCandidate = &ranked[i]
		}
	}
	if cardCandidate == nil {
		t.Fatalf("compact record missing from ranked output")
	}
	if !cardCandidate.IsCompactRecord {
		t.Fatalf("expected compact-record flag, got %+v", *cardCandidate)
	}
	if !cardCandidate.HasURL {
		t.Fatalf("expected URL flag on compact record")
	}
}

func TestRankOrdersPreservedCandidatesFirst(t *testing.T) {
	// A URL-flagged card with a low adjusted score must still precede the
	// plain base selection when the question is URL-flavored.
	cardContent := "VPN Gateway\n10.20.30.40"
	hits := []domain.SearchHit{hit("card", "cards.txt", cardContent, 0.01)}
	for i := 0; i < 12; i++ {
		hits = append(hits, hit(
			"doc-"+string(rune('a'+i)),
			"manual.pdf",
			strings.Repeat("network configuration narrative for the gateway teams ", 8),
			0.9-float64(i)*0.01,
		))
	}

	ranked := rankerForTest().Rank("what is the ip address of the vpn gateway?", hits)
	if len(ranked) == 0 {
		t.Fatalf("expected ranked output")
	}
	if ranked[0].Hit.Document.ID != "card" {
		t.Fatalf("expected preserved card first, got %s", ranked[0].Hit.Document.ID)
	}
}

func TestFileTypeMultiplier(t *testing.T) {
	cases := []struct {
		doc  domain.SearchDocument
		want float64
	}{
		{domain.SearchDocument{Filename: "a.pdf"}, 2.0},
		{domain.SearchDocument{Filename: "a.docx"}, 1.8},
		{domain.SearchDocument{FileType: "doc"}, 1.8},
		{domain.SearchDocument{Filename: "export.html"}, 0.7},
		{domain.SearchDocument{Filename: "wiki-dump.txt"}, 0.7},
		{domain.SearchDocument{Filename: "notes.txt"}, 1.0},
	}
	for _, tc := range cases {
		if got := fileTypeMultiplier(tc.doc); got != tc.want {
			t.Fatalf("fileTypeMultiplier(%+v) = %v, want %v", tc.doc, got, tc.want)
		}
	}
}

func TestContentQualityPenalizesLinkFarms(t *testing.T) {
	prose := strings.Repeat("substantive policy sentence with useful words ", 20)
	linkFarm := "download https://a.example download https://b.example download https://c.example"

	if contentQualityMultiplier(prose) <= contentQualityMultiplier(linkFarm) {
		t.Fatalf("expected prose to outscore link farm")
	}
}

func TestContentQualityDoublesForPolicyText(t *testing.T) {
	plain := "Employees receive benefits according to tenure and role in the company overall."
	policy := "Employees are entitled to 20 days of leave. Effective date January 1."

	plainScore := contentQualityMultiplier(plain)
	policyScore := contentQualityMultiplier(policy)
	if policyScore < plainScore {
		t.Fatalf("expected policy-like text boosted: plain=%v policy=%v", plainScore, policyScore)
	}
}

package enums

import "testing"

func TestParseSiteStatus(t *testing.T) {
	got, err := ParseSiteStatus("in_progress")
	if err != nil {
		t.Fatalf("ParseSiteStatus: %v", err)
	}
	if got != SiteStatusInProgress {
		t.Fatalf("expected in_progress, got %s", got)
	}
	if _, err := ParseSiteStatus("archived"); err == nil {
		t.Fatal("expected unknown status to fail")
	}
}

func TestSiteStatusMirrored(t *testing.T) {
	cases := map[SiteStatus]bool{
		SiteStatusDraft:      false,
		SiteStatusConfirmed:  true,
		SiteStatusInProgress: true,
		SiteStatusCompleted:  true,
		SiteStatusCancelled:  false,
	}
	for status, want := range cases {
		if got := status.Mirrored(); got != want {
			t.Fatalf("%s: expected mirrored=%v, got %v", status, want, got)
		}
	}
}

package domains

import (
	"fmt"
	"reflect"
	"testing"
)

func TestFilterDropsDigitsAndHyphens(t *testing.T) {
	in := []string{"test1.com", "test-2.com", "te5t.com", "good.com"}
	got := Filter(in)
	want := []string{"good.com"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Filter() = %v, want %v", got, want)
	}
}

func TestFilterOnlyChecksFirstLabel(t *testing.T) {
	// digits after the first dot are fine
	in := []string{"shop.web3.io", "alpha.co-op.uk"}
	got := Filter(in)
	if !reflect.DeepEqual(got, in) {
		t.Fatalf("Filter() = %v, want %v", got, in)
	}
}

func TestFilterDropsEmptyEntries(t *testing.T) {
	in := []string{"", "   ", "fine.com"}
	got := Filter(in)
	want := []string{"fine.com"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Filter() = %v, want %v", got, want)
	}
}

func TestFilterIdempotent(t *testing.T) {
	in := []string{"test1.com", "good.com", "also-bad.net", "keep.org"}
	once := Filter(in)
	twice := Filter(once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("second Filter() = %v, want %v", twice, once)
	}
}

func TestEligible(t *testing.T) {
	cases := []struct {
		domain string
		want   bool
	}{
		{"good.com", true},
		{"good", true},
		{"te5t.com", false},
		{"has-hyphen.com", false},
		{".com", false},
		{"UPPER.COM", true},
	}
	for _, tc := range cases {
		t.Run(tc.domain, func(t *testing.T) {
			if got := Eligible(tc.domain); got != tc.want {
				t.Fatalf("Eligible(%q) = %v, want %v", tc.domain, got, tc.want)
			}
		})
	}
}

func TestPartition(t *testing.T) {
	domains := make([]string, 6000)
	for i := range domains {
		domains[i] = fmt.Sprintf("domain%d.com", i)
	}

	chunks := Partition(domains, 2500)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != 2500 || len(chunks[1]) != 2500 || len(chunks[2]) != 1000 {
		t.Fatalf("unexpected chunk sizes: %d, %d, %d", len(chunks[0]), len(chunks[1]), len(chunks[2]))
	}
}

func TestPartitionEmpty(t *testing.T) {
	if chunks := Partition(nil, 100); chunks != nil {
		t.Fatalf("expected nil, got %v", chunks)
	}
}

func TestPartitionNonPositiveSize(t *testing.T) {
	in := []string{"a.com", "b.com"}
	chunks := Partition(in, 0)
	if len(chunks) != 1 || len(chunks[0]) != 2 {
		t.Fatalf("expected single chunk with all entries, got %v", chunks)
	}
}

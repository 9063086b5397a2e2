package fields

import "testing"

func TestParseToken(t *testing.T) {
	cases := []struct {
		key       string
		want      Token
		ok        bool
		malformed bool
	}{
		{key: "students-_MFL_PK-7", want: Token{Origin: OriginDatabase, ID: 7}, ok: true},
		{key: "students-_MFL_PK-7-full_name", want: Token{Origin: OriginDatabase, ID: 7, Input: "full_name"}, ok: true},
		{key: "students-_MFL_PK-7-_MFLTW_DEL", want: Token{Origin: OriginDatabase, ID: 7, Delete: true}, ok: true},
		{key: "students-_MFL_NEW-0-grade", want: Token{Origin: OriginNew, ID: 0, Input: "grade"}, ok: true},
		{key: "students-_MFL_NEW-3-_MFLTW_DEL", want: Token{Origin: OriginNew, ID: 3, Delete: true}, ok: true},
		{key: "students-_MFLTW_ADD", want: Token{Add: true}, ok: true},
		{key: "students-_MFL_PK-abc", malformed: true},
		{key: "students-_MFL_NEW--1", malformed: true},
		{key: "students-_MFL_PK", malformed: true},
		{key: "students-other", ok: false},
		{key: "teachers-_MFL_PK-1", ok: false},
		{key: "studentsx-_MFLTW_ADD", ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			got, ok, malformed := ParseToken("students", tc.key)
			if ok != tc.ok || malformed != tc.malformed {
				t.Fatalf("ParseToken(%q) ok=%v malformed=%v, want ok=%v malformed=%v", tc.key, ok, malformed, tc.ok, tc.malformed)
			}
			if got != tc.want {
				t.Fatalf("ParseToken(%q) = %+v, want %+v", tc.key, got, tc.want)
			}
		})
	}
}

func TestTokenNames(t *testing.T) {
	entry := EntryName("students", OriginNew, 4)
	if entry != "students-_MFL_NEW-4" {
		t.Fatalf("unexpected entry name %q", entry)
	}
	if got := DeleteName(entry); got != "students-_MFL_NEW-4-_MFLTW_DEL" {
		t.Fatalf("unexpected delete name %q", got)
	}
	if got := AddName("students"); got != "students-_MFLTW_ADD" {
		t.Fatalf("unexpected add name %q", got)
	}
	if got := EntryName("students", OriginDatabase, 12); got != "students-_MFL_PK-12" {
		t.Fatalf("unexpected database entry name %q", got)
	}
}

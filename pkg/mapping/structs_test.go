package mapping

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type owner struct {
	ID   int64  `orm:"pk"`
	Name string `orm:"length=40"`
}

type pet struct {
	ID        int64      `orm:"pk"`
	Name      string     `orm:"length=20" doc:"Call name"`
	Nickname  *string
	Kind      string     `orm:"type=enum,enum=cat|dog"`
	Born      time.Time  `orm:"type=date"`
	Weight    float32
	Age       uint8      `orm:"default=1"`
	Chip      []byte
	OwnerID   *int64     `db:"owner_id" orm:"fk=owner.id"`
	Owner     *owner
	Friends   []*pet     `orm:"rel=many-to-many"`
	Secret    string     `orm:"-"`
	internal  int
	Attrs     map[string]string
}

func propertyByKey(t *testing.T, m Mapper, key string) Property {
	t.Helper()
	for _, prop := range m.Properties() {
		if prop.Key == key {
			return prop
		}
	}
	t.Fatalf("property %q not found", key)
	return Property{}
}

func TestRegistry_ParsesStructTags(t *testing.T) {
	reg := NewRegistry()
	m, err := reg.Register(pet{})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	var keys []string
	for _, prop := range m.Properties() {
		keys = append(keys, prop.Key)
	}
	want := []string{"id", "name", "nickname", "kind", "born", "weight", "age", "chip", "owner_id", "owner", "friends"}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	if m.Table() != "pet" || m.Name() != "pet" {
		t.Fatalf("unexpected identity %s/%s", m.Name(), m.Table())
	}

	name := propertyByKey(t, m, "name").Columns[0]
	if name.Type.Name != "String" || name.Type.Length != 20 || name.Nullable {
		t.Fatalf("unexpected name column %+v", name)
	}
	if doc := propertyByKey(t, m, "name").Doc; doc != "Call name" {
		t.Fatalf("unexpected doc %q", doc)
	}
	if !propertyByKey(t, m, "nickname").Columns[0].Nullable {
		t.Fatalf("pointer fields are nullable")
	}
	kind := propertyByKey(t, m, "kind").Columns[0]
	if kind.Type.Name != "Enum" || !reflect.DeepEqual(kind.Type.Enums, []string{"cat", "dog"}) {
		t.Fatalf("unexpected enum column %+v", kind.Type)
	}
	if born := propertyByKey(t, m, "born").Columns[0]; born.Type.Name != "Date" {
		t.Fatalf("type override ignored: %+v", born.Type)
	}
	if weight := propertyByKey(t, m, "weight").Columns[0]; weight.Type.Qualified() != "sql.sqltypes.Float" {
		t.Fatalf("unexpected float type %s", weight.Type.Qualified())
	}
	age := propertyByKey(t, m, "age").Columns[0]
	if !age.Type.Unsigned || age.Default != uint64(1) {
		t.Fatalf("unexpected age column %+v", age)
	}
	if chip := propertyByKey(t, m, "chip").Columns[0]; chip.Type.Name != "LargeBinary" {
		t.Fatalf("byte slices map to LargeBinary, got %s", chip.Type.Name)
	}
	if fk := propertyByKey(t, m, "owner_id").Columns[0]; !reflect.DeepEqual(fk.ForeignKeys, []string{"owner.id"}) {
		t.Fatalf("unexpected foreign keys %v", fk.ForeignKeys)
	}
}

func TestRegistry_Relationships(t *testing.T) {
	reg := NewRegistry()
	m, err := reg.Register(&pet{})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	ownerRel := propertyByKey(t, m, "owner").Relationship
	if ownerRel == nil || ownerRel.Direction != ManyToOne || ownerRel.Target.Name() != "owner" {
		t.Fatalf("unexpected owner relationship %+v", ownerRel)
	}
	if len(ownerRel.LocalColumns) != 1 || ownerRel.LocalColumns[0].Name != "owner_id" || !ownerRel.LocalColumns[0].Nullable {
		t.Fatalf("expected nullable owner_id join column, got %+v", ownerRel.LocalColumns)
	}

	friends := propertyByKey(t, m, "friends").Relationship
	if friends == nil || friends.Direction != ManyToMany || friends.Target != Mapper(m) {
		t.Fatalf("expected self-referencing many-to-many, got %+v", friends)
	}
}

func TestStructMapper_IdentityAndNew(t *testing.T) {
	reg := NewRegistry()
	m, err := reg.Register(owner{})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	key, err := m.Identity(&owner{ID: 9})
	if err != nil || !reflect.DeepEqual(key, []any{int64(9)}) {
		t.Fatalf("unexpected identity %v (%v)", key, err)
	}
	if _, err := m.Identity(&pet{}); !errors.Is(err, ErrNoIdentity) {
		t.Fatalf("expected ErrNoIdentity for foreign row, got %v", err)
	}
	if _, ok := m.New().(*owner); !ok {
		t.Fatalf("New must return a pointer to the mapped struct, got %T", m.New())
	}
}

func TestRegistry_RejectsBadTags(t *testing.T) {
	type broken struct {
		ID int64 `orm:"pk,shiny"`
	}
	if _, err := NewRegistry().Register(broken{}); err == nil {
		t.Fatalf("expected unknown option error")
	}
	if _, err := NewRegistry().Register(42); err == nil {
		t.Fatalf("expected error for non-struct sample")
	}
}

func TestStructOptions(t *testing.T) {
	m, err := NewRegistry().Register(owner{}, WithTable("owners"), WithName("Owner"), WithDefault("name", ColumnDefault{Arg: func() any { return "anon" }}))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if m.Table() != "owners" || m.Name() != "Owner" {
		t.Fatalf("options ignored: %s/%s", m.Name(), m.Table())
	}
	if _, ok := propertyByKey(t, m, "name").Columns[0].Default.(ColumnDefault); !ok {
		t.Fatalf("expected ColumnDefault on name")
	}
}

func TestTypeHierarchy(t *testing.T) {
	custom := Derive("app.types", "Slug", Unicode(64))
	var got []string
	for _, name := range custom.Hierarchy() {
		got = append(got, name.Qualified())
	}
	want := []string{"app.types.Slug", "sql.sqltypes.Unicode", "sql.sqltypes.String"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("hierarchy mismatch (-want +got):\n%s", diff)
	}
	if custom.Length != 64 {
		t.Fatalf("derived types keep the parent length, got %d", custom.Length)
	}
	if bit := MSSQLBit().Hierarchy(); bit[1].Qualified() != "sql.sqltypes.Boolean" {
		t.Fatalf("BIT should extend Boolean, got %v", bit)
	}
}

func TestParseDirection(t *testing.T) {
	cases := map[string]Direction{"many-to-one": ManyToOne, "ONETOMANY": OneToMany, "many_to_many": ManyToMany}
	for raw, want := range cases {
		if got, ok := ParseDirection(raw); !ok || got != want {
			t.Fatalf("ParseDirection(%q) = %q, %v", raw, got, ok)
		}
	}
	if _, ok := ParseDirection("sideways"); ok {
		t.Fatalf("expected unknown direction")
	}
}

func TestSnakeCase(t *testing.T) {
	cases := map[string]string{"SchoolID": "school_id", "FullName": "full_name", "DOB": "dob", "HTTPServer": "http_server", "ID": "id"}
	for in, want := range cases {
		if got := snakeCase(in); got != want {
			t.Fatalf("snakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}

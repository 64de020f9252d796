package persist

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/arcadia-eng/designdb/internal/metamodel"
	"github.com/arcadia-eng/designdb/internal/model"
)

func testMetamodel(t *testing.T) *metamodel.Metamodel {
	t.Helper()
	m := metamodel.New("flows")
	if err := m.DeclareComponent("Description", map[string]model.ValueType{
		"text": model.TypeString,
	}); err != nil {
		t.Fatalf("declare: %v", err)
	}
	if err := m.DeclareType("Stock", []model.ComponentKind{"Description"}, nil); err != nil {
		t.Fatalf("declare: %v", err)
	}
	return m
}

// testDocument builds a two-frame container: an empty root and one child
// holding a single stock.
func testDocument() *Document {
	snap := model.NewObjectSnapshot(1, 1, "Stock", map[model.ComponentKind]model.ComponentData{
		"Description": model.NewComponentData(map[string]model.Value{
			"text": model.String("tank"),
		}),
	})
	root := model.NewFrame(1, 0, 1, nil)
	child := model.NewFrame(2, 1, 2, map[model.ObjectID]model.SnapshotID{1: 1})
	return &Document{
		Info: Info{
			FormatVersion: FormatVersion,
			DesignID:      "ad9f6c9e-0000-4000-8000-000000000001",
			MetamodelName: "flows",
			Head:          2,
		},
		Snapshots: []*model.ObjectSnapshot{snap},
		Frames:    []*model.Frame{root, child},
	}
}

func saveTestDocument(t *testing.T, doc *Document) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "design.db")
	if err := Save(path, doc); err != nil {
		t.Fatalf("save: %v", err)
	}
	return path
}

// corrupt runs SQL statements against a saved container.
func corrupt(t *testing.T, path string, stmts ...string) {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open for corruption: %v", err)
	}
	defer db.Close()
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	doc := testDocument()
	path := saveTestDocument(t, doc)

	loaded, err := Load(path, testMetamodel(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if loaded.Info.FormatVersion != FormatVersion {
		t.Fatalf("format version = %q", loaded.Info.FormatVersion)
	}
	if loaded.Info.DesignID != doc.Info.DesignID {
		t.Fatalf("design id = %q, want %q", loaded.Info.DesignID, doc.Info.DesignID)
	}
	if loaded.Info.Head != 2 {
		t.Fatalf("head = %s, want 2", loaded.Info.Head)
	}
	if len(loaded.Snapshots) != 1 || len(loaded.Frames) != 2 {
		t.Fatalf("loaded %d snapshots, %d frames", len(loaded.Snapshots), len(loaded.Frames))
	}

	snap := loaded.Snapshots[0]
	if snap.SnapshotID() != 1 || snap.ObjectID() != 1 || snap.TypeName() != "Stock" {
		t.Fatalf("snapshot = %s/%s/%s", snap.SnapshotID(), snap.ObjectID(), snap.TypeName())
	}
	data, ok := snap.Component("Description")
	if !ok {
		t.Fatal("Description component missing")
	}
	text, _ := data.Get("text")
	if !model.ValuesEqual(text, model.String("tank")) {
		t.Fatalf("text = %v", text)
	}
}

func TestSave_ReplacesExistingFileAtomically(t *testing.T) {
	path := saveTestDocument(t, testDocument())

	// A second save over the same path replaces the file; no .tmp leftover.
	doc := testDocument()
	doc.Info.DesignID = "ad9f6c9e-0000-4000-8000-000000000002"
	if err := Save(path, doc); err != nil {
		t.Fatalf("second save: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}

	loaded, err := Load(path, testMetamodel(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Info.DesignID != doc.Info.DesignID {
		t.Fatalf("design id = %q, want replacement", loaded.Info.DesignID)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.db"), testMetamodel(t))
	var pe *PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want PersistenceError", err)
	}
	if pe.Op != "open" {
		t.Fatalf("op = %q, want open", pe.Op)
	}
}

func TestLoad_MissingCollections(t *testing.T) {
	tests := []struct {
		name string
		drop string
		want any
	}{
		{"info", `DROP TABLE info`, &MissingInfoRecordError{}},
		{"snapshots", `DROP TABLE snapshots`, &MissingSnapshotsCollectionError{}},
		{"frames", `DROP TABLE frames`, &MissingFramesCollectionError{}},
		{"frame_objects", `DROP TABLE frame_objects`, &MissingFramesCollectionError{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := saveTestDocument(t, testDocument())
			corrupt(t, path, tt.drop)

			_, err := Load(path, testMetamodel(t))
			switch want := tt.want.(type) {
			case *MissingInfoRecordError:
				if !errors.As(err, &want) {
					t.Fatalf("err = %v", err)
				}
			case *MissingSnapshotsCollectionError:
				if !errors.As(err, &want) {
					t.Fatalf("err = %v", err)
				}
			case *MissingFramesCollectionError:
				if !errors.As(err, &want) {
					t.Fatalf("err = %v", err)
				}
			}
		})
	}
}

func TestLoad_UnknownFormatVersion(t *testing.T) {
	path := saveTestDocument(t, testDocument())
	corrupt(t, path, `UPDATE info SET value = '99' WHERE key = 'format_version'`)

	_, err := Load(path, testMetamodel(t))
	var uv *UnknownVersionError
	if !errors.As(err, &uv) {
		t.Fatalf("err = %v, want UnknownVersionError", err)
	}
	if uv.Version != "99" {
		t.Fatalf("version = %q, want 99", uv.Version)
	}
}

func TestLoad_MetamodelMismatch(t *testing.T) {
	path := saveTestDocument(t, testDocument())
	corrupt(t, path, `UPDATE info SET value = 'circuits' WHERE key = 'metamodel'`)

	_, err := Load(path, testMetamodel(t))
	var uv *UnknownVersionError
	if !errors.As(err, &uv) {
		t.Fatalf("err = %v, want UnknownVersionError", err)
	}
	if uv.Metamodel != "circuits" || uv.Expected != "flows" {
		t.Fatalf("metamodel = %q expected = %q", uv.Metamodel, uv.Expected)
	}
}

func TestLoad_DanglingSnapshotReference(t *testing.T) {
	path := saveTestDocument(t, testDocument())
	corrupt(t, path, `UPDATE frame_objects SET snapshot_id = '999' WHERE frame_id = '2'`)

	_, err := Load(path, testMetamodel(t))
	var ds *DanglingSnapshotReferenceError
	if !errors.As(err, &ds) {
		t.Fatalf("err = %v, want DanglingSnapshotReferenceError", err)
	}
	if ds.Frame != 2 || ds.Snapshot != 999 {
		t.Fatalf("dangling = frame %s snapshot %s", ds.Frame, ds.Snapshot)
	}
}

func TestLoad_MalformedVersionGraph(t *testing.T) {
	tests := []struct {
		name string
		stmt string
	}{
		{
			name: "unknown parent",
			stmt: `UPDATE frames SET parent_frame_id = '999' WHERE frame_id = '2'`,
		},
		{
			name: "two roots",
			stmt: `UPDATE frames SET parent_frame_id = NULL WHERE frame_id = '2'`,
		},
		{
			name: "cycle",
			stmt: `UPDATE frames SET parent_frame_id = '2' WHERE frame_id = '1'`,
		},
		{
			name: "empty frame collection",
			stmt: `DELETE FROM frames`,
		},
		{
			name: "head not in collection",
			stmt: `UPDATE info SET value = '999' WHERE key = 'head_frame_id'`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := saveTestDocument(t, testDocument())
			if tt.name == "empty frame collection" {
				corrupt(t, path, `DELETE FROM frame_objects`, tt.stmt)
			} else {
				corrupt(t, path, tt.stmt)
			}

			_, err := Load(path, testMetamodel(t))
			var mv *MalformedVersionGraphError
			if !errors.As(err, &mv) {
				t.Fatalf("err = %v, want MalformedVersionGraphError", err)
			}
		})
	}
}

func TestLoad_SchemaViolationInSnapshot(t *testing.T) {
	path := saveTestDocument(t, testDocument())
	// An integer where the metamodel declares a string.
	corrupt(t, path, `UPDATE snapshots SET components = '{"Description":{"text":7}}' WHERE snapshot_id = '1'`)

	_, err := Load(path, testMetamodel(t))
	if !metamodel.IsSchemaViolation(err) {
		t.Fatalf("err = %v, want SchemaViolationError", err)
	}
}

func TestLoad_MalformedComponentJSON(t *testing.T) {
	path := saveTestDocument(t, testDocument())
	corrupt(t, path, `UPDATE snapshots SET components = 'not json' WHERE snapshot_id = '1'`)

	_, err := Load(path, testMetamodel(t))
	if !metamodel.IsSchemaViolation(err) {
		t.Fatalf("err = %v, want SchemaViolationError", err)
	}
}

func TestLoad_MissingHeadFallsBackToNewestFrame(t *testing.T) {
	path := saveTestDocument(t, testDocument())
	corrupt(t, path, `DELETE FROM info WHERE key = 'head_frame_id'`)

	loaded, err := Load(path, testMetamodel(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Info.Head != 2 {
		t.Fatalf("fallback head = %s, want 2 (newest by seq)", loaded.Info.Head)
	}
}

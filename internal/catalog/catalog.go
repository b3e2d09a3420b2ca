// Package catalog declares the built-in entities of the heritage catalog:
// the territorial and ecclesiastical divisions, the properties themselves,
// their legal history and the external sources that describe them.
package catalog

import "heritage-catalog/internal/metadata"

// Entities returns fresh declarations of every built-in entity, in the order
// they are exposed. Callers may load the result into a Registry directly.
func Entities() []*metadata.Entity {
	return []*metadata.Entity{
		region(),
		province(),
		locality(),
		diocese(),
		property(),
		transmission(),
		protection(),
		propertyOSMExt(),
		propertyWikidataExt(),
		historiographicSource(),
		citation(),
	}
}

// audited builds an entity with a client-generated UUID key, soft delete and
// the audit columns shared by every catalog table.
func audited(name, table, description string, fields ...metadata.Field) *metadata.Entity {
	all := make([]metadata.Field, 0, len(fields)+6)
	all = append(all, metadata.Field{Name: "id", Type: "uuid"})
	all = append(all, fields...)
	all = append(all,
		metadata.Field{Name: "created_at", Type: "timestamp", Auto: "create"},
		metadata.Field{Name: "updated_at", Type: "timestamp", Auto: "update"},
		metadata.Field{Name: metadata.DeletedAtField, Type: "timestamp", Nullable: true},
		metadata.Field{Name: metadata.CreatedByField, Type: "string", Nullable: true},
		metadata.Field{Name: metadata.UpdatedByField, Type: "string", Nullable: true},
		metadata.Field{Name: metadata.DeletedByField, Type: "string", Nullable: true},
	)
	return &metadata.Entity{
		Name:        name,
		Table:       table,
		Description: description,
		PrimaryKey:  metadata.PrimaryKey{Field: "id", Type: "uuid"},
		SoftDelete:  true,
		Fields:      all,
		Computed: []metadata.ComputedField{
			{Name: "is_deleted", Expression: "deleted_at != nil", Description: "Whether the record is soft-deleted"},
		},
	}
}

func required(name, typ string) metadata.Field {
	return metadata.Field{Name: name, Type: typ, Required: true}
}

func optional(name, typ string) metadata.Field {
	return metadata.Field{Name: name, Type: typ, Nullable: true}
}

func flag(name string) metadata.Field {
	return metadata.Field{Name: name, Type: "boolean", Required: true, Default: false}
}

func region() *metadata.Entity {
	return audited("Region", "regions", "Autonomous community",
		metadata.Field{Name: "name", Type: "string", Required: true, Unique: true},
	)
}

func province() *metadata.Entity {
	return audited("Province", "provinces", "Province within a region",
		required("name", "string"),
		required("region_id", "string"),
	)
}

func locality() *metadata.Entity {
	return audited("Locality", "localities", "Municipality or town",
		required("name", "string"),
		required("province_id", "string"),
	)
}

func diocese() *metadata.Entity {
	e := audited("Diocese", "dioceses", "Ecclesiastical diocese",
		metadata.Field{Name: "name", Type: "string", Required: true, Unique: true},
		metadata.Field{Name: "wikidata_qid", Type: "string", Nullable: true, Unique: true},
	)
	e.Computed = append(e.Computed, metadata.ComputedField{
		Name:        "wikidata_url",
		Func:        wikidataURL,
		Description: "Wikidata entity page",
	})
	return e
}

// PropertyKinds are the recognised kinds of religious building.
var PropertyKinds = []string{
	"church", "chapel", "hermitage", "cathedral", "monastery", "convent", "shrine", "other",
}

func property() *metadata.Entity {
	e := audited("Property", "properties", "Religious heritage property",
		required("name", "string"),
		optional("description", "text"),
		optional("address", "string"),
		metadata.Field{Name: "kind", Type: "enum", Enum: PropertyKinds, Nullable: true},
		optional("latitude", "float"),
		optional("longitude", "float"),
		optional("region_id", "string"),
		optional("province_id", "string"),
		optional("locality_id", "string"),
		optional("diocese_id", "string"),
		flag("is_bic"),
		flag("is_ruin"),
	)
	e.Computed = append(e.Computed,
		metadata.ComputedField{
			Name:        "display_name",
			Expression:  `address != nil && address != "" ? name + " (" + address + ")" : name`,
			Description: "Name followed by the address when known",
		},
		metadata.ComputedField{
			Name:        "has_coordinates",
			Expression:  "latitude != nil && longitude != nil",
			Description: "Whether the property is geolocated",
		},
		metadata.ComputedField{
			Name:        "coordinates_label",
			Func:        coordinatesLabel,
			Description: "Latitude and longitude as text",
		},
	)
	return e
}

// TransmissionKinds are the recognised kinds of ownership transfer.
var TransmissionKinds = []string{
	"sale", "donation", "inheritance", "exchange", "expropriation", "registration", "other",
}

func transmission() *metadata.Entity {
	e := audited("Transmission", "transmissions", "Transfer of ownership of a property",
		required("property_id", "string"),
		metadata.Field{Name: "kind", Type: "enum", Enum: TransmissionKinds, Required: true, Default: "sale"},
		optional("transferor_id", "string"),
		optional("acquirer_id", "string"),
		optional("notary_id", "string"),
		optional("land_registry_id", "string"),
		optional("transmission_date", "date"),
		optional("description", "text"),
		metadata.Field{Name: "sale_price", Type: "decimal", Precision: 2, Nullable: true},
	)
	e.Computed = append(e.Computed,
		metadata.ComputedField{
			Name:        "is_registration",
			Expression:  `kind == "registration"`,
			Description: "Whether the transfer is a first registration",
		},
		metadata.ComputedField{
			Name:        "year",
			Returns:     metadata.KindInteger,
			Func:        transmissionYear,
			Description: "Year of the transfer",
		},
	)
	return e
}

// ProtectionFigures are the legal protection categories.
var ProtectionFigures = []string{"bic", "catalogued", "inventoried", "local", "other"}

func protection() *metadata.Entity {
	e := audited("Protection", "protections", "Legal protection granted to a property",
		required("property_id", "string"),
		metadata.Field{Name: "figure", Type: "enum", Enum: ProtectionFigures, Required: true},
		optional("administration_id", "string"),
		optional("bic_code", "string"),
		optional("regulation", "text"),
		optional("declared_on", "date"),
	)
	e.Computed = append(e.Computed, metadata.ComputedField{
		Name:        "is_bic",
		Expression:  `figure == "bic"`,
		Description: "Whether the protection is a Bien de Interés Cultural",
	})
	return e
}

// OSMTypes are the OpenStreetMap element types.
var OSMTypes = []string{"node", "way", "relation"}

func propertyOSMExt() *metadata.Entity {
	e := audited("PropertyOSMExt", "property_osm_ext", "OpenStreetMap data attached to a property",
		metadata.Field{Name: "property_id", Type: "string", Required: true, Unique: true},
		metadata.Field{Name: "osm_id", Type: "bigint", Nullable: true},
		metadata.Field{Name: "osm_type", Type: "enum", Enum: OSMTypes, Nullable: true},
		optional("version", "int"),
		optional("name", "string"),
		optional("inferred_type", "string"),
		optional("denomination", "string"),
		optional("diocese", "string"),
		optional("operator", "string"),
		optional("heritage_status", "string"),
		optional("historic", "string"),
		flag("ruins"),
		flag("has_polygon"),
		optional("address_street", "string"),
		optional("address_city", "string"),
		optional("address_postcode", "string"),
		optional("source_updated_at", "timestamp"),
		optional("tags", "json"),
		optional("raw", "json"),
		optional("qa_flags", "json"),
		optional("source_refs", "json"),
	)
	e.Computed = append(e.Computed, metadata.ComputedField{
		Name:        "osm_url",
		Func:        osmURL,
		Description: "OpenStreetMap element page",
	})
	return e
}

func propertyWikidataExt() *metadata.Entity {
	e := audited("PropertyWikidataExt", "property_wikidata_ext", "Wikidata data attached to a property",
		metadata.Field{Name: "property_id", Type: "string", Required: true, Unique: true},
		metadata.Field{Name: "wikidata_qid", Type: "string", Nullable: true, Unique: true},
		optional("commons_category", "string"),
		optional("inception", "string"),
		optional("source_updated_at", "timestamp"),
		optional("claims", "json"),
		optional("sitelinks", "json"),
		optional("raw", "json"),
	)
	e.Computed = append(e.Computed,
		metadata.ComputedField{
			Name:        "wikidata_url",
			Func:        wikidataURL,
			Description: "Wikidata entity page",
		},
		metadata.ComputedField{
			Name:        "commons_url",
			Expression:  `commons_category != nil ? "https://commons.wikimedia.org/wiki/Category:" + replace(commons_category, " ", "_") : nil`,
			Description: "Wikimedia Commons category page",
		},
	)
	return e
}

func historiographicSource() *metadata.Entity {
	e := audited("HistoriographicSource", "historiographic_sources", "Published work cited by the catalog",
		required("title", "string"),
		optional("author", "string"),
		optional("publisher", "string"),
		optional("publication_year", "int"),
		optional("isbn", "string"),
		optional("description", "text"),
	)
	e.Computed = append(e.Computed, metadata.ComputedField{
		Name:        "reference",
		Func:        bibliographicReference,
		Description: "Short bibliographic reference",
	})
	return e
}

func citation() *metadata.Entity {
	return audited("Citation", "citations", "Quotation from a source about a property",
		required("source_id", "string"),
		required("property_id", "string"),
		optional("pages", "string"),
		required("quote", "text"),
		optional("notes", "text"),
	)
}

// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package xmldesc parses a vendor device-description export (namespace
// http://tempuri.org/DeviceDescriptionDataSet.xsd) and resolves its
// profile layout: it walks the XML structure, discovers profile
// objects, reads capture_objects arrays, and extracts billing-value and
// profile-buffer records.
package xmldesc

import "encoding/xml"

// document mirrors the parts of the device-description schema the
// decoder needs. encoding/xml matches elements by local name when a tag
// carries none, which keeps this namespace-tolerant without extra code
// since the whole file lives in a single namespace.
type document struct {
	XMLName xml.Name  `xml:"DeviceDescriptionDataSet"`
	DDs     ddsElement `xml:"DDs"`
}

type ddsElement struct {
	DDID                 string         `xml:"DDID,attr"`
	DDSubset             string         `xml:"DDSubset,attr"`
	ModificationDateTime string         `xml:"ModificationDateTime"`
	CreationDateTime     string         `xml:"CreationDateTime"`
	MAPInfos             *mapInfosEl    `xml:"MAPInfos"`
	Objects              []objectsEl    `xml:"Objects"`
}

type mapInfosEl struct {
	DDID string `xml:"DDID"`
}

type objectsEl struct {
	ObjectLogicalName string          `xml:"ObjectLogicalName,attr"`
	ObjectName        string          `xml:"ObjectName,attr"`
	ClassID           string          `xml:"ClassID,attr"`
	Attributes        []attributesEl  `xml:"Attributes"`
}

type attributesEl struct {
	AttributeName string    `xml:"AttributeName,attr"`
	Fields        []fieldEl `xml:"Fields"`
}

// fieldEl is a single flat record. The device-description format encodes
// a tree (profile buffer rows and their column values) as a flat sibling
// list of Fields elements, each carrying its full dotted path in
// FieldName; parent/child relationships are recovered by string prefix,
// not by XML nesting (see fieldIndex in fields.go).
type fieldEl struct {
	FieldName  string `xml:"FieldName,attr"`
	FieldType  string `xml:"FieldType,attr"`
	FieldValue string `xml:"FieldValue,attr"`
}

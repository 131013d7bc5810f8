package docx

import (
	"fmt"
	"path"
	"strconv"
	"strings"
)

const (
	imageRelType = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	relsNS       = "http://schemas.openxmlformats.org/package/2006/relationships"

	// EMUPerPixel converts 96 DPI pixels to English Metric Units.
	EMUPerPixel = 9525
)

const inlineTemplate = `<w:drawing xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">` +
	`<wp:inline distT="0" distB="0" distL="0" distR="0">` +
	`<wp:extent cx="%[1]d" cy="%[2]d"/>` +
	`<wp:docPr id="%[3]d" name="%[4]s"/>` +
	`<a:graphic xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">` +
	`<a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">` +
	`<pic:pic xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture">` +
	`<pic:nvPicPr><pic:cNvPr id="%[3]d" name="%[4]s"/><pic:cNvPicPr/></pic:nvPicPr>` +
	`<pic:blipFill><a:blip r:embed="%[5]s"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>` +
	`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%[1]d" cy="%[2]d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr>` +
	`</pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing>`

// AddPicture embeds a PNG image inline in the run at the given size in EMU.
func (r *Run) AddPicture(png []byte, name string, cx, cy int64) error {
	d := r.doc
	mediaName := d.nextMediaName("png")
	d.addPart("word/"+mediaName, png)

	relID, err := d.addRelationship(d.partOf(r.node), imageRelType, mediaName)
	if err != nil {
		return err
	}
	if err := d.ensureDefaultContentType("png", "image/png"); err != nil {
		return err
	}

	if d.pictureSeq == 0 {
		d.pictureSeq = d.maxDrawingID()
	}
	d.pictureSeq++
	drawing, err := parseFragment(fmt.Sprintf(inlineTemplate, cx, cy, d.pictureSeq, escapeAttr(name), relID))
	if err != nil {
		return fmt.Errorf("failed to build drawing: %w", err)
	}
	r.node.appendChild(drawing)
	return nil
}

func (d *Document) maxDrawingID() int {
	maxID := 0
	for _, name := range append([]string{documentPart}, d.footers...) {
		root, err := d.tree(name)
		if err != nil {
			continue
		}
		for _, n := range root.collect("wp", "docPr", nil) {
			v, _ := n.attr("", "id")
			if id, err := strconv.Atoi(v); err == nil && id > maxID {
				maxID = id
			}
		}
	}
	return maxID
}

// partOf returns the name of the part whose tree holds n.
func (d *Document) partOf(n *Node) string {
	root := n
	for root.Parent != nil {
		root = root.Parent
	}
	for name, t := range d.trees {
		if t == root {
			return name
		}
	}
	return documentPart
}

// relsPart is the relationships part of a part: word/footer1.xml has
// word/_rels/footer1.xml.rels.
func relsPart(part string) string {
	return path.Join(path.Dir(part), "_rels", path.Base(part)+".rels")
}

func escapeAttr(s string) string {
	return strings.NewReplacer(`&`, "&amp;", `<`, "&lt;", `"`, "&quot;").Replace(s)
}

func (d *Document) nextMediaName(ext string) string {
	for i := 1; ; i++ {
		name := fmt.Sprintf("media/image%d.%s", i, ext)
		if _, exists := d.parts["word/"+name]; !exists {
			return name
		}
	}
}

// addRelationship registers target in the relationships of part and
// returns the new relationship id.
func (d *Document) addRelationship(part, relType, target string) (string, error) {
	rp := relsPart(part)
	if _, ok := d.parts[rp]; !ok {
		d.addPart(rp, []byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`+
			`<Relationships xmlns="`+relsNS+`"></Relationships>`))
	}
	t, err := d.tree(rp)
	if err != nil {
		return "", err
	}
	rels := t.first("", "Relationships")
	if rels == nil {
		return "", fmt.Errorf("%s has no Relationships element", rp)
	}

	maxID := 0
	for _, rel := range rels.elements("", "Relationship") {
		id, _ := rel.attr("", "Id")
		if n, err := strconv.Atoi(strings.TrimPrefix(id, "rId")); err == nil && n > maxID {
			maxID = n
		}
	}
	id := "rId" + strconv.Itoa(maxID+1)

	rel := newElement("", "Relationship")
	rel.setAttr("", "Id", id)
	rel.setAttr("", "Type", relType)
	rel.setAttr("", "Target", target)
	rels.appendChild(rel)
	return id, nil
}

func (d *Document) ensureDefaultContentType(ext, contentType string) error {
	t, err := d.tree(contentTypesPart)
	if err != nil {
		return err
	}
	types := t.first("", "Types")
	if types == nil {
		return fmt.Errorf("%s has no Types element", contentTypesPart)
	}
	for _, def := range types.elements("", "Default") {
		if e, _ := def.attr("", "Extension"); strings.EqualFold(e, ext) {
			return nil
		}
	}
	def := newElement("", "Default")
	def.setAttr("", "Extension", ext)
	def.setAttr("", "ContentType", contentType)
	types.insertChild(0, def)
	return nil
}

// Media returns the names of the embedded media parts.
func (d *Document) Media() []string {
	var out []string
	for _, name := range d.order {
		if strings.HasPrefix(name, "word/media/") {
			out = append(out, path.Base(name))
		}
	}
	return out
}

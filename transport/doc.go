// Package transport connects arenas to a transfer engine.
//
// A Transport owns a local shared arena whose blocks are advertised to peers
// as (arena name, offset, size). Peers resolve a segment id to an arena name
// through a SegmentResolver, attach to that arena once per Worker and then
// move bytes with plain copies between local buffers and translated offsets.
//
// Workers are not safe for concurrent use; create one per goroutine.
package transport

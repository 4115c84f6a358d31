package png

// EndChunkType is the tag of the terminator chunk.
const EndChunkType = "IEND"

// Embed inserts c so that an existing IEND chunk stays last.
//
// The first IEND chunk is taken out, c is appended and IEND is appended again.
// Without an IEND chunk, c is simply appended. This is a convention on top of
// AppendChunk and RemoveChunk; Png itself does not require IEND to be last.
func Embed(p *Png, c Chunk) {
	end, err := p.RemoveChunk(EndChunkType)
	p.AppendChunk(c)
	if err == nil {
		p.AppendChunk(end)
	}
}

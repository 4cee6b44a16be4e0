// This file is part of Kestrel.
//
// Kestrel is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Kestrel is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Kestrel.  If not, see <https://www.gnu.org/licenses/>.

package cpu

// Instruction word assembly helpers. These exist for the benefit of test
// programs; Kestrel has no assembler.

// Nop assembles a NOP instruction.
func Nop() uint32 {
	return opNOP << 24
}

// Movi assembles a MOVI instruction: rd = imm16.
func Movi(rd int, imm16 uint32) uint32 {
	return opMOVI<<24 | uint32(rd&0x0f)<<16 | imm16&0xffff
}

// Add assembles an ADD instruction: rd = ra + rb.
func Add(rd int, ra int, rb int) uint32 {
	return opADD<<24 | uint32(rd&0x0f)<<16 | uint32(ra&0x0f)<<8 | uint32(rb&0x0f)
}

// Sub assembles a SUB instruction: rd = ra - rb.
func Sub(rd int, ra int, rb int) uint32 {
	return opSUB<<24 | uint32(rd&0x0f)<<16 | uint32(ra&0x0f)<<8 | uint32(rb&0x0f)
}

// Jmp assembles a JMP instruction. The target address must be word aligned.
func Jmp(target uint32) uint32 {
	return opJMP<<24 | (target>>2)&0x00ffffff
}

// Ldw assembles a LDW instruction: rd = mem32[ra + imm8].
func Ldw(rd int, ra int, imm8 uint32) uint32 {
	return opLDW<<24 | uint32(rd&0x0f)<<16 | uint32(ra&0x0f)<<8 | imm8&0xff
}

// Stw assembles a STW instruction: mem32[ra + imm8] = rd.
func Stw(rd int, ra int, imm8 uint32) uint32 {
	return opSTW<<24 | uint32(rd&0x0f)<<16 | uint32(ra&0x0f)<<8 | imm8&0xff
}

// Halt assembles a HALT instruction.
func Halt() uint32 {
	return opHALT << 24
}
